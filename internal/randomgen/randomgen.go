// Package randomgen produces plausible random contact data for load and integration tests.
package randomgen

import (
	"fmt"
	"math/rand"
	"strings"
)

var firstNames = []string{
	"Aaron", "Anna", "Bert", "Berta", "Carla", "Claus", "Dora", "Emil", "Erika", "Frieda",
	"Gerd", "Hanna", "Hans", "Ida", "Jonas", "Karla", "Lena", "Marcus", "Nora", "Otto",
	"Paula", "Rudi", "Sofia", "Theo", "Ute", "Vera", "Willi", "Yvonne", "Zacharias",
}

var lastNames = []string{
	"Adams", "Bauer", "Becker", "Brandt", "Clausen", "Dietz", "Ebert", "Fischer", "Hartmann",
	"Hoffmann", "Jung", "Keller", "Koch", "Krause", "Lange", "Meyer", "Mustermann", "Neumann",
	"Peters", "Richter", "Schmidt", "Schulz", "Vogel", "Wagner", "Weber", "Wolf", "Zimmermann",
}

// PickFirstName returns a random first name.
func PickFirstName() string {
	return firstNames[rand.Intn(len(firstNames))]
}

// PickLastName returns a random last name.
func PickLastName() string {
	return lastNames[rand.Intn(len(lastNames))]
}

// PickEmail returns a random address in the example.com domain built from the given names.
func PickEmail(first, last string) string {
	return fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), rand.Intn(10000))
}

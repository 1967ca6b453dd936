package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"gitlab.com/dirk.krummacker/contacts-service/internal/randomgen"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
)

var (
	baseURL = flag.String("url", "http://localhost:8080", "the address of the contacts service")
	owner   = flag.String("owner", "load-test", "the owner on whose behalf the requests are sent")
)

// Usage example on the command line:
// > go run main.go -url=http://localhost:8080 -owner=load-test
func main() {
	flag.Parse()
	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000, 100000}
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)
		ids := make([]int64, 0, loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				id, d := sendPostRequest(contactBody(0))
				ids = append(ids, id)
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PUT requests
			f := func(id int64) int64 {
				return sendPutGetDeleteRequest(id, http.MethodPut, contactBody(1))
			}
			callInLoop(ids, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return sendPutGetDeleteRequest(id, http.MethodGet, nil)
			}
			callInLoop(ids, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				return sendPutGetDeleteRequest(id, http.MethodDelete, nil)
			}
			callInLoop(ids, f)
		}
		fmt.Println()
	}
}

// contactBody returns the JSON of a random contact. A version above zero makes it an update.
func contactBody(version int64) io.Reader {
	first, last := randomgen.PickFirstName(), randomgen.PickLastName()
	email := randomgen.PickEmail(first, last)
	birthday := api.Date{Time: time.Date(1920+rand.Intn(90), time.Month(1+rand.Intn(12)), 1+rand.Intn(28), 0, 0, 0, 0, time.UTC)}
	body, err := json.Marshal(api.ContactRequest{
		FirstName: first,
		LastName:  last,
		Birthday:  &birthday,
		Email:     &email,
		Version:   version,
	})
	if err != nil {
		panic(err)
	}
	return bytes.NewReader(body)
}

func callInLoop(ids []int64, f func(id int64) int64) {
	shuffled := append([]int64(nil), ids...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	var duration int64
	for _, id := range shuffled {
		d := f(id)
		duration += d
	}
	fmt.Printf("%10d", duration/int64(len(ids)*1000))
}

func sendPostRequest(bodyReader io.Reader) (int64, int64) {
	requestURL := fmt.Sprintf("%s/contacts", *baseURL)
	resBody, duration := sendRequest(http.MethodPost, requestURL, bodyReader)
	var contact api.ContactResponse
	err := json.Unmarshal(resBody, &contact)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	return contact.Id, duration
}

func sendPutGetDeleteRequest(id int64, method string, bodyReader io.Reader) int64 {
	requestURL := fmt.Sprintf("%s/contacts/%d", *baseURL, id)
	_, duration := sendRequest(method, requestURL, bodyReader)
	return duration
}

func sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", *owner)
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	if res.StatusCode >= 300 {
		fmt.Printf("unexpected status %s: %s\n", res.Status, resBody)
	}
	return resBody, after - before
}

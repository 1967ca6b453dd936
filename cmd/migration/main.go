package main

import (
	"bufio"
	"flag"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-service/internal/config"
	"gitlab.com/dirk.krummacker/contacts-service/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/database.sql
func main() {
	filePtr := flag.String("file", "scripts/database.sql", "the sql file to execute")
	configPtr := flag.String("config", "", "config file (environment variables take precedence)")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogMode)

	sqlDB, err := store.CreateDatabase(store.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName))
	if err != nil {
		log.Fatal(err)
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		log.Fatal(err)
	}
	defer readFile.Close()

	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	statements := 0
	for fileScanner.Scan() {
		line := fileScanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			db.MustExec(builder.String())
			statements++
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		log.Fatal(err)
	}
	log.Infow("migration done", "file", *filePtr, "statements", statements)
}

// Command migrate-create scaffolds a timestamped up/down migration pair for
// the quizroom schema.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultMigrationsDir = "db/migrations"

func main() {
	name := flag.String("name", "", "migration name, e.g. add_match_events")
	dir := flag.String("dir", defaultMigrationsDir, "migrations directory")
	flag.Parse()

	if *name == "" {
		log.Fatal("quizroom migrate-create: migration name is required")
	}
	if strings.ContainsAny(*name, " ") {
		log.Fatal("quizroom migrate-create: migration name must not contain spaces")
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	upPath := filepath.Join(*dir, base+".up.sql")
	downPath := filepath.Join(*dir, base+".down.sql")

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("quizroom migrate-create: create migrations dir: %v", err)
	}

	if err := writeStub(upPath, "-- "+*name+" (up)\n"); err != nil {
		log.Fatalf("quizroom migrate-create: %v", err)
	}
	if err := writeStub(downPath, "-- "+*name+" (down)\n"); err != nil {
		log.Fatalf("quizroom migrate-create: %v", err)
	}

	log.Printf("created %s and %s", upPath, downPath)
}

func writeStub(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

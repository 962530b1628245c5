// Command apikey manages the publisher's API keys from a terminal.
//
// Usage:
//
//	apikey add <name>      prompt for a key and store its hash
//	apikey list            print configured key names
//	apikey remove <name>   delete a key
//
// The database location is taken from DATABASE_DIR (default /database),
// matching the server's configuration.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"video-publisher/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	dbDir := os.Getenv("DATABASE_DIR")
	if dbDir == "" {
		dbDir = "/database"
	}
	dbPath := filepath.Join(dbDir, "publisher.db")

	db, err := database.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database at %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer db.Close()

	switch os.Args[1] {
	case "add":
		err = addKey(db, os.Args[2:])
	case "list":
		err = listKeys(db)
	case "remove":
		err = removeKey(db, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: apikey <add|list|remove> [name]")
}

func addKey(db *database.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("add requires exactly one key name")
	}
	name := args[0]

	key, err := promptKey()
	if err != nil {
		return err
	}
	if len(key) < 16 {
		return fmt.Errorf("key must be at least 16 characters")
	}

	if err := db.InsertAPIKey(name, key); err != nil {
		return err
	}
	fmt.Printf("API key %q added.\n", name)
	return nil
}

func listKeys(db *database.DB) error {
	keys, err := db.ListAPIKeys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No API keys configured; authentication is open.")
		return nil
	}
	for _, k := range keys {
		fmt.Printf("%s\t(created %s)\n", k.Name, k.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func removeKey(db *database.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove requires exactly one key name")
	}
	name := args[0]

	if err := db.DeleteAPIKey(name); err != nil {
		return err
	}
	fmt.Printf("API key %q removed.\n", name)
	return nil
}

// promptKey reads the key without echo when attached to a terminal, and
// falls back to a plain line read for piped input.
func promptKey() (string, error) {
	fmt.Print("Enter API key: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

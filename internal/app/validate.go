package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sentinel validate <file.json> [file.json ...]")
		return 2
	}

	invalid := 0
	for _, path := range paths {
		doc, err := readDocumentFile(path)
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", path, err)
			continue
		}
		fmt.Printf("OK %s: document_id=%s organization=%s source_type=%s\n", path, doc.ID, doc.Organization, doc.SourceType)
	}

	if invalid > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files invalid\n", invalid, len(paths))
		return 1
	}
	return 0
}

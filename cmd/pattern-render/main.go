package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/component"
	"github.com/tendant/simple-pattern/pkg/simplepattern/config"
	"github.com/tendant/simple-pattern/pkg/simplepattern/loader"
	"github.com/tendant/simple-pattern/pkg/simplepattern/presets"
	"github.com/tendant/simple-pattern/pkg/simplepattern/property"
	"gopkg.in/yaml.v3"
)

const usage = `Simple Pattern Render CLI

Renders YAML pattern documents offline, or imports them into a pattern store.

USAGE:
  pattern-render <command> [options] <file.yaml>...

COMMANDS:
  render    Render documents and print the result
  validate  Parse and validate documents
  import    Create patterns for each document in the configured store

ENVIRONMENT VARIABLES (import only):
  DATABASE_URL      "memory" (default) or a PostgreSQL connection string
  DB_SCHEMA         PostgreSQL schema name
  AUTO_MIGRATE      Create the pattern table if missing (default: true)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  # Render one document as JSON
  pattern-render render page.yaml

  # Render several documents into one record keyed by document name
  pattern-render render header.yaml footer.yaml

  # Render as YAML, or print the unrendered structure
  pattern-render render --yaml page.yaml
  pattern-render render --raw page.yaml

  # Import into Postgres
  DATABASE_URL=postgres://localhost/patterns pattern-render import page.yaml

OPTIONS (for render):
  --yaml     Output YAML instead of JSON
  --raw      Print the prepared structure instead of the rendered one
  --compact  Print JSON on a single line
`

type renderOptions struct {
	yaml    bool
	raw     bool
	compact bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	// Check for help
	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage)
		os.Exit(0)
	}

	opts, files := parseArgs(os.Args[2:])
	if len(files) == 0 {
		fmt.Printf("No pattern files given\n\n")
		fmt.Print(usage)
		os.Exit(1)
	}

	docs, err := loadDocuments(files)
	if err != nil {
		log.Fatalf("Failed to load documents: %v", err)
	}

	ctx := context.Background()

	switch command {
	case "render":
		handleRender(docs, opts)
	case "validate":
		for _, doc := range docs {
			fmt.Printf("%s: ok\n", doc.Name)
		}
	case "import":
		handleImport(ctx, docs)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func parseArgs(args []string) (renderOptions, []string) {
	var opts renderOptions
	var files []string

	for _, arg := range args {
		switch arg {
		case "--yaml":
			opts.yaml = true
		case "--raw":
			opts.raw = true
		case "--compact":
			opts.compact = true
		default:
			if strings.HasPrefix(arg, "--") {
				log.Printf("Ignoring unknown option %s", arg)
				continue
			}
			files = append(files, arg)
		}
	}

	return opts, files
}

func loadDocuments(files []string) ([]*loader.Document, error) {
	docs := make([]*loader.Document, 0, len(files))
	for _, file := range files {
		doc, err := loader.LoadFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func handleRender(docs []*loader.Document, opts renderOptions) {
	root, err := buildRoot(docs, config.NewFactory())
	if err != nil {
		log.Fatalf("Failed to build documents: %v", err)
	}

	var out any
	if opts.raw {
		out = root.PrepareRender()
	} else {
		out = root.Render()
	}

	if err := write(out, opts); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

// buildRoot returns the single document's property, or a component keyed by
// document name when there are several
func buildRoot(docs []*loader.Document, factory *property.Factory) (property.Property, error) {
	if len(docs) == 1 {
		return docs[0].Property(factory)
	}

	bundle := component.New("documents")
	for _, doc := range docs {
		if _, exists := bundle.Child(doc.Name); exists {
			return nil, fmt.Errorf("duplicate document name %q: each file in a bundle needs a unique name", doc.Name)
		}
		prop, err := doc.Property(factory)
		if err != nil {
			return nil, err
		}
		bundle.Add(doc.Name, prop)
	}
	return bundle, nil
}

func write(v any, opts renderOptions) error {
	if opts.yaml {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(os.Stdout)
	if !opts.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func handleImport(ctx context.Context, docs []*loader.Document) {
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// An in-memory store is gone when the process exits, so print what was rendered
	ephemeral := serverConfig.DatabaseType == "memory"

	var svc simplepattern.Service
	if ephemeral {
		log.Printf("DATABASE_URL not set, importing into an in-memory store")
		svc, err = presets.NewDevelopment()
	} else {
		svc, err = serverConfig.BuildService(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	for _, doc := range docs {
		pattern, err := loader.Import(ctx, svc, doc)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", doc.Name, err)
		}
		fmt.Printf("%s\t%s\n", pattern.ID, pattern.Name)

		if ephemeral {
			rendered, err := svc.RenderPattern(ctx, pattern.ID)
			if err != nil {
				log.Fatalf("Failed to render %s: %v", doc.Name, err)
			}
			if err := write(rendered, renderOptions{}); err != nil {
				log.Fatalf("Failed to write output: %v", err)
			}
		}
	}
}

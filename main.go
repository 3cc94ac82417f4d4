package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/atotto/clipboard"
	"github.com/google/uuid"

	"github.com/alimasry/go-composer/config"
	"github.com/alimasry/go-composer/editor"
	"github.com/alimasry/go-composer/logging"
	"github.com/alimasry/go-composer/logging/gologger"
	"github.com/alimasry/go-composer/store"
)

type options struct {
	configPath string
	docID      string
	importPath string
	exportPath string
	clipboard  bool
	stats      bool
	list       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "composer.toml", "TOML configuration file")
	flag.StringVar(&opts.docID, "doc", "", "document ID (a new one is generated when empty)")
	flag.StringVar(&opts.importPath, "import", "", "Markdown file to load into the document")
	flag.StringVar(&opts.exportPath, "export", "", "write the document as Markdown to this file (- for stdout)")
	flag.BoolVar(&opts.clipboard, "clipboard", false, "copy the document Markdown to the clipboard")
	flag.BoolVar(&opts.stats, "stats", false, "print word and character counts")
	flag.BoolVar(&opts.list, "list", false, "list stored documents and exit")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	provider, err := gologger.NewProvider(cfg.Logger.Provider())
	if err != nil {
		return err
	}
	logger := logging.ModuleLogger(provider, "")
	for _, key := range cfg.Unrecognized {
		logger.Warn("unrecognized config key", "key", key, "file", opts.configPath)
	}

	docs, closeStore, err := openStore(ctx, cfg.Store, provider)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeStore())
	}()

	if opts.list {
		return listDocuments(ctx, docs)
	}

	id := opts.docID
	if id == "" {
		id = uuid.NewString()
		logger.Info("created document id", "document", id)
	}
	session, err := editor.Open(ctx, store.NewBridge(docs, id),
		editor.WithID(id),
		editor.WithLogging(provider),
		editor.WithHistoryLimit(cfg.Editor.HistoryLimit),
		editor.WithAutosaveInterval(cfg.Editor.AutosaveInterval),
	)
	if err != nil {
		return err
	}
	// Close performs the final save.
	defer func() {
		err = errors.Join(err, session.Close())
	}()

	if opts.importPath != "" {
		src, err := os.ReadFile(opts.importPath)
		if err != nil {
			return err
		}
		if err := session.LoadMarkdown(ctx, string(src)); err != nil {
			return err
		}
		logger.Info("imported markdown", "document", id, "file", opts.importPath)
	}

	md := session.Markdown()
	switch opts.exportPath {
	case "":
	case "-":
		fmt.Println(md)
	default:
		if err := os.WriteFile(opts.exportPath, []byte(md+"\n"), 0o644); err != nil {
			return err
		}
	}
	if opts.clipboard {
		if err := clipboard.WriteAll(md); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	if opts.stats {
		st := session.Stats()
		fmt.Printf("%s: %d words, %d characters\n", id, st.Words, st.Characters)
	}
	return nil
}

// openStore builds the configured document store and returns a function
// that flushes and releases it.
func openStore(ctx context.Context, cfg config.StoreConfig, provider logging.Provider) (store.DocumentStore, func() error, error) {
	var (
		docs    store.DocumentStore
		closers []func() error
	)
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		bs := store.NewBunStore(db)
		if err := bs.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		docs = bs
		closers = append(closers, db.Close)
	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		docs = store.NewFirestoreStore(client, cfg.Collection)
		closers = append(closers, client.Close)
	default:
		docs = store.NewMemoryStore()
	}

	if cfg.Cached {
		cs := store.NewCachedStore(docs, cfg.FlushInterval, logging.StoreLogger(provider))
		docs = cs
		// Flush before the backing store goes away.
		closers = append([]func() error{cs.Close}, closers...)
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return docs, closeAll, nil
}

func listDocuments(ctx context.Context, docs store.DocumentStore) error {
	infos, err := docs.List(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Printf("%s\tv%d\t%s\n", info.ID, info.Version, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

package main

import (
	"flag"
	"log"

	"ticket-notifier/notifier"
	"ticket-notifier/webapi"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var dbPath string
	var addr string

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (overrides config.db).")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config.api_addr).")
	flag.Parse()

	cfg := &notifier.FileConfig{}
	if configPath != "" {
		loaded, err := notifier.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	if addr != "" {
		cfg.APIAddr = addr
	}

	db, err := notifier.OpenQueryDB(cfg.DB)
	if err != nil {
		log.Fatalf("open db %q: %v", cfg.DB, err)
	}

	r := webapi.NewRouter(db)
	log.Printf("ticket-api listening on %s (db=%s)", cfg.APIAddr, cfg.DB)
	if err := r.Run(cfg.APIAddr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

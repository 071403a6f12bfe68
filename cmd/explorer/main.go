package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/paneworks/explorer/internal/app"
	"github.com/paneworks/explorer/internal/config"
	"github.com/paneworks/explorer/internal/debug"
)

func main() {
	panes := flag.Int("panes", config.DefaultPaneCount, "Number of panes (4, 6, or 8)")
	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	configPath := flag.String("config", "", "Path to config file (default: platform config dir)")
	flag.Parse()

	if *debugFlag {
		debug.EnableAll()
	}

	if !config.ValidPaneCount(*panes) {
		fmt.Fprintf(os.Stderr, "invalid pane count %d: choose from %v\n", *panes, config.PaneCounts)
		os.Exit(2)
	}

	mgr := config.NewManager()
	var err error
	if *configPath != "" {
		err = mgr.LoadFrom(*configPath)
	} else {
		err = mgr.Load()
	}
	if err != nil {
		log.Printf("Config load failed, using defaults: %v", err)
	}
	if perr := mgr.ParseError(); perr != nil {
		log.Printf("Config file is malformed, using defaults: %v", perr)
	}

	session, err := app.New(mgr.Get(), *panes)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := session.Start(flag.Args()); err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer session.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

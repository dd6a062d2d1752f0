// Command layerstore-server hosts a single layer.Store over the network
// so remote rpc.Clients can use it as their own Backend, per spec.md §9's
// "layered store as another instance of itself" composition.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/duskfs/layerstore/pkg/backend"
	"github.com/duskfs/layerstore/pkg/layer"
	"github.com/duskfs/layerstore/pkg/rpc"
)

func main() {
	var (
		dataFile = flag.String("file", "", "backing file path; empty means in-memory")
		address  = flag.String("addr", ":4610", "listen address")
		pageSize = flag.Int64("page-size", layer.DefaultPageSize, "page size in bytes")
		maxPages = flag.Int("max-pages", layer.DefaultMaxPages, "resident page cache limit")
	)
	flag.Parse()

	var bk layer.Backend
	if *dataFile == "" {
		bk = backend.NewMemory()
	} else {
		bk = backend.NewDisk(*dataFile, true)
	}

	opts := layer.DefaultOptions()
	opts.PageSize = *pageSize
	opts.MaxPages = *maxPages
	opts.OnFlushError = func(err error) {
		log.Printf("flush error: %v", err)
	}

	store := layer.New(bk, opts)
	if err := store.Open(); err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	srv := rpc.New(backend.NewLayered(store))

	log.Printf("layerstore-server starting...")
	log.Printf("Backing: %s", backingDescription(*dataFile))
	log.Printf("Listening on: %s", *address)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutting down...")
		srv.Close()
	}()

	if err := srv.Listen(*address); err != nil {
		log.Printf("server error: %v", err)
	}
}

func backingDescription(path string) string {
	if path == "" {
		return "in-memory"
	}
	return path
}

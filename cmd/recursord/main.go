// Command recursord serves DNS over UDP, answering each query by iterative
// resolution from the roots.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnscore/recursor"
	"github.com/linkdata/rate"
)

var flagListen = flag.String("listen", ":2053", "UDP address to listen on")
var flagTimeout = flag.Int("timeout", 5, "per-query resolution timeout in seconds")
var flagRatelimit = flag.Int("ratelimit", 0, "rate limit upstream queries per second, 0 means no limit")
var flagDebug = flag.Bool("debug", false, "print per-resolution debug output")

func main() {
	flag.Parse()

	maxrate := int32(*flagRatelimit) // #nosec G115
	var rateLimiter <-chan struct{}
	if maxrate > 0 {
		rateLimiter = rate.NewTicker(nil, &maxrate).C
	}

	rec := recursor.NewWithOptions(nil, nil, rateLimiter)
	if *flagDebug {
		rec.DefaultLogWriter = os.Stderr
	}

	var logw io.Writer = os.Stderr
	srv := &recursor.Server{
		Resolver:  rec,
		Addr:      *flagListen,
		Timeout:   time.Second * time.Duration(*flagTimeout),
		LogWriter: logw,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Listen(); err != nil {
		log.Fatal(err)
	}
	log.Printf("listening on %v", srv.LocalAddr())
	if err := srv.Serve(ctx); err != nil {
		log.Fatal(err)
	}
}

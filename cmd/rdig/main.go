// Command rdig resolves names iteratively from the DNS roots and prints the
// results in a dig-like format.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/dnscore/recursor"
	"github.com/linkdata/rate"
	"github.com/miekg/dns"
)

var flagTimeout = flag.Int("timeout", 30, "total resolution timeout in seconds")
var flagRatelimit = flag.Int("ratelimit", 0, "rate limit queries per second, 0 means no limit")
var flagCount = flag.Int("count", 1, "repeat count")
var flagSleep = flag.Int("sleep", 0, "sleep ms between repeats")
var flag4 = flag.Bool("4", true, "use IPv4 root hints")
var flag6 = flag.Bool("6", false, "use IPv6 root hints")
var flagDebug = flag.Bool("debug", false, "print debug output")

func main() {
	flag.Parse()

	qtype := recursor.TypeA
	qnames := []string{}
	for _, arg := range flag.Args() {
		if x, ok := dns.StringToType[strings.ToUpper(arg)]; ok {
			qtype = x
		} else {
			qnames = append(qnames, arg)
		}
	}

	if len(qnames) == 0 {
		fmt.Println("missing one or more names to query")
		return
	}

	var roots []netip.Addr
	if *flag4 {
		roots = append(roots, recursor.Roots4...)
	}
	if *flag6 {
		roots = append(roots, recursor.Roots6...)
	}

	maxrate := int32(*flagRatelimit) // #nosec G115
	var rateLimiter <-chan struct{}
	if maxrate > 0 {
		rateLimiter = rate.NewTicker(nil, &maxrate).C
	}

	rec := recursor.NewWithOptions(nil, roots, rateLimiter)

	var dbgout io.Writer
	if *flagDebug {
		dbgout = os.Stderr
	}

	for i := 0; i < *flagCount; i++ {
		if i > 0 && *flagSleep > 0 {
			time.Sleep(time.Millisecond * time.Duration(*flagSleep))
		}
		for _, qname := range qnames {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second*time.Duration(*flagTimeout))
			msg, srv, err := rec.ResolveWithOptions(ctx, dbgout, qname, qtype)
			cancel()
			if !*flagDebug {
				fmt.Printf("; <<>> rdig <<>> %s %s\n", recursor.TypeToString(qtype), qname)
				if msg != nil {
					fmt.Println(msg)
				}
				if srv.IsValid() {
					fmt.Printf(";; SERVER: %s\n", srv)
				}
				if err != nil {
					fmt.Printf(";; ERROR: %v\n", err)
				}
			}
		}
	}
}

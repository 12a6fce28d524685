package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
	"github.com/hypertiles/gotess/libtess"
	"github.com/hypertiles/gotess/libtess/catalog"
)

func main() {

	flag.Set("logtostderr", "true")
	flag.Set("v", "1")

	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "1")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})

	dbPath := flag.String("db", "", "store the generated rules in this catalog")
	flag.Parse()

	pathname := flag.Arg(0)
	if pathname == "" {
		fmt.Fprintln(os.Stderr, "usage: gotess [-db catalog] tiling.tes")
		os.Exit(2)
	}

	text, err := os.ReadFile(pathname)
	if err != nil {
		klog.Fatalf("%v", err)
	}

	tiling, err := libtess.ParseTiling(string(text))
	if err != nil {
		klog.Fatalf("bad tiling descriptor: %v", err)
	}

	rs, counters, err := libtess.Generate(tiling, gotess.DefaultOpts())
	if err != nil {
		klog.Fatalf("%v", err)
	}
	klog.Infof("generated %d states in %d tries using %d-%d cells",
		len(rs.States), counters.Tries, counters.TcellCount, counters.Unified)

	if err = rs.WriteText(os.Stdout); err != nil {
		klog.Fatalf("%v", err)
	}

	if *dbPath != "" {
		cat, err := catalog.OpenCatalog(catalog.Opts{DbPathName: *dbPath})
		if err != nil {
			klog.Fatalf("%v", err)
		}
		defer cat.Close()
		added, err := cat.TryAddRules(rs)
		if err != nil {
			klog.Fatalf("%v", err)
		}
		if added {
			klog.Infof("stored rules for %q", rs.Name)
		} else {
			klog.Infof("catalog already has rules for %q", rs.Name)
		}
	}

	klog.Flush()
}

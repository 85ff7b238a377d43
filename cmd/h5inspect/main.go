// Command h5inspect prints the groups, datasets and attributes of an HDF5
// file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/robert-malhotra/volpack/hdf5"
	"github.com/robert-malhotra/volpack/internal/message"
)

func main() {
	os.Exit(runWithArgs(os.Args[1:], os.Stdout, os.Stderr))
}

func runWithArgs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("h5inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noAttrs := fs.Bool("no_attrs", false, "do not print attributes")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: h5inspect [options] <file.h5>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	filename := fs.Arg(0)
	f, err := hdf5.Open(filename)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer f.Close()

	fmt.Fprintf(stdout, "%s (superblock v%d)\n", filename, f.Version())
	err = hdf5.Walk(f.Root(), func(path string, obj any, err error) error {
		if err != nil {
			fmt.Fprintf(stdout, "%s: %v\n", path, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintf(stdout, "%s (group)\n", path)
			if !*noAttrs {
				printAttrs(stdout, o.Attrs())
			}
		case *hdf5.Dataset:
			printDataset(stdout, o)
			if !*noAttrs {
				printAttrs(stdout, o.Attrs())
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printDataset(w io.Writer, ds *hdf5.Dataset) {
	dt := ds.Dtype()
	if ds.IsScalar() && isString(dt) {
		s, err := ds.ReadString()
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", ds.Path(), dt, err)
			return
		}
		fmt.Fprintf(w, "%s %s = %q\n", ds.Path(), dt, s)
		return
	}

	fmt.Fprintf(w, "%s %s %s", ds.Path(), dt, dims(ds.Shape()))
	if maxShape := ds.MaxShape(); maxShape != nil {
		fmt.Fprintf(w, " max %s", dims(maxShape))
	}
	if ds.Layout() == message.LayoutChunked {
		fmt.Fprintf(w, " chunks %s", dims(ds.ChunkShape()))
		if filters := ds.Filters(); len(filters) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(filters, ", "))
		}
		raw := ds.NumElements() * 8
		fmt.Fprintf(w, " stored %s", humanize.Bytes(ds.StoredBytes()))
		if dt == "float64" && raw > 0 {
			fmt.Fprintf(w, " of %s", humanize.Bytes(raw))
		}
	}
	fmt.Fprintln(w)
}

func printAttrs(w io.Writer, attrs []*hdf5.Attribute) {
	for _, a := range attrs {
		v, err := a.Value()
		if errors.Is(err, hdf5.ErrUnsupported) {
			fmt.Fprintf(w, "  @%s %s\n", a.Name(), a.Dtype())
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "  @%s: %v\n", a.Name(), err)
			continue
		}
		fmt.Fprintf(w, "  @%s = %v\n", a.Name(), v)
	}
}

func isString(dtype string) bool {
	return dtype == "vlen string" || strings.HasPrefix(dtype, "string[")
}

func dims(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		if d == message.Unlimited {
			parts[i] = "inf"
		} else {
			parts[i] = fmt.Sprint(d)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

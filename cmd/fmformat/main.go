package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/formatter"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
)

func main() {
	sanitize := flag.Bool("sanitize", false, "Sanitize the rendered HTML")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-sanitize] [file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	in := io.Reader(os.Stdin)
	switch flag.NArg() {
	case 0:
	case 1:
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("open input: %v", err)
		}
		defer f.Close()
		in = f
	default:
		flag.Usage()
		os.Exit(2)
	}

	raw, err := io.ReadAll(io.LimitReader(in, utils.MaxDataSize+1))
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	if err := utils.NewSizeValidator("input", utils.MaxDataSize).ValidateSize(raw); err != nil {
		log.Fatal(err)
	}

	var opts []formatter.Option
	if *sanitize {
		opts = append(opts, formatter.WithDefaultSanitizer())
	}
	fmt.Println(formatter.New(opts...).Format(string(raw)))
}

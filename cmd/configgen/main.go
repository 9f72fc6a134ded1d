package main

import (
	"flag"
	"log"
	"os"

	"github.com/seyedmohammadhosseini/veins/internal/config"
)

func main() {
	output := flag.String("output", config.DefaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", config.DefaultPath, "config path for validation")
	show := flag.Bool("show", false, "with -validate, print the effective config")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s", *input)
		if *show {
			out, err := config.Render(cfg)
			if err != nil {
				log.Fatal(err)
			}
			_, _ = os.Stdout.Write(out)
		}
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}

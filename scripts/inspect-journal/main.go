package main

import (
	"flag"
	"fmt"
	"time"

	"churn-detection/internal/storage"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Data directory path")
		days     = flag.Int("days", 30, "How many days of loads to list")
	)
	flag.Parse()

	fmt.Printf("Inspecting artifact loads in: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	end := time.Now()
	loads, err := store.Loads(end.AddDate(0, 0, -*days), end)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read artifact loads")
	}
	if len(loads) == 0 {
		fmt.Println("No artifact loads recorded.")
		return
	}

	for i, l := range loads {
		fmt.Printf("\n%s  %s v%s  id=%s\n", l.LoadedAt.Format(time.RFC3339), l.AppName, l.Version, l.ID)
		for _, a := range l.Artifacts {
			alias := ""
			if a.Aliased {
				alias = " -> " + a.ServedBy
			}
			fmt.Printf("  %-12s %.12s  %s%s\n", a.Name, a.SHA256, a.Path, alias)
		}
		if i > 0 {
			if changed := storage.ChangedArtifacts(loads[i-1], l); len(changed) > 0 {
				fmt.Printf("  changed since previous load: %v\n", changed)
			}
		}
	}
}

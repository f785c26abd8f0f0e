// Command demo plays one match offline and prints the event stream folded
// through the reducer. Useful for eyeballing game balance and personality
// behavior without a server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"colosseum-lite/arena"
	"colosseum-lite/match"
	"colosseum-lite/sim"
)

func main() {
	var (
		game      = flag.String("game", "resource_wars", "game type: resource_wars, negotiation, auction, gpu_bidding")
		red       = flag.String("red", "aggressive", "red personality")
		blue      = flag.String("blue", "defensive", "blue personality")
		rounds    = flag.Int("rounds", 0, "round count (0 uses the game default)")
		seed      = flag.Int64("seed", 0, "rng seed (0 uses the clock)")
		simulated = flag.Bool("sim", false, "use the synthetic generator instead of rule brains")
		delay     = flag.Duration("delay", 0, "pause between rounds")
	)
	flag.Parse()

	gt := arena.GameType(*game)
	if !gt.Valid() {
		fmt.Fprintf(os.Stderr, "unknown game type %q\n", *game)
		os.Exit(1)
	}

	var events <-chan arena.Event
	if *simulated {
		events = sim.New(sim.Config{
			GameType:    gt,
			TotalRounds: *rounds,
			Seed:        *seed,
			RoundDelay:  *delay,
		}).Run(context.Background())
	} else {
		events = match.NewRunner(match.Config{
			GameType:        gt,
			RedPersonality:  *red,
			BluePersonality: *blue,
			TotalRounds:     *rounds,
			Seed:            *seed,
			RoundDelay:      *delay,
		}).Run(context.Background())
	}

	snap := arena.NewSnapshot()
	var futures int
	start := time.Now()
	for ev := range events {
		snap = arena.Apply(snap, ev)
		switch ev.Type {
		case arena.EventMatchStart:
			fmt.Printf("=== %s (%s) %s vs %s, %d rounds ===\n",
				snap.MatchID, arena.GameTypeDictionary[gt],
				*red, *blue, snap.TotalRounds)
		case arena.EventPrediction:
			futures++
		case arena.EventCollapse:
			if ev.Resolution != nil && ev.Resolution.Description != "" {
				fmt.Printf("  %s\n", ev.Resolution.Description)
			}
		case arena.EventRoundEnd:
			scores := snap.Scores()
			fmt.Printf("round %d/%d  red %d : blue %d\n",
				snap.CurrentRound, snap.TotalRounds, scores.Red, scores.Blue)
		}
	}

	final := snap.Scores()
	fmt.Printf("\nwinner: %s\n", orDraw(snap.Winner))
	fmt.Printf("final score: red %d, blue %d\n", final.Red, final.Blue)
	fmt.Printf("prediction accuracy: red %.2f, blue %.2f\n", snap.Accuracy.Red, snap.Accuracy.Blue)
	fmt.Printf("%d futures simulated in %s\n", futures, time.Since(start).Round(time.Millisecond))
}

func orDraw(winner string) string {
	if winner == "" {
		return "draw"
	}
	return winner
}

// Package names assigns memorable adjective-animal names to recordings and
// maps each animal to its icon for progress reporting.
package names

import (
	"fmt"
	"math/rand"
	"strings"
)

type animal struct {
	name string
	icon string
}

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crimson",
	"curious", "dapper", "deft", "eager", "fearless", "fierce", "gentle",
	"golden", "graceful", "hardy", "honest", "humble", "jolly", "keen",
	"kind", "lively", "loyal", "lucid", "mellow", "merry", "mighty",
	"nimble", "noble", "patient", "plucky", "proud", "quick", "quiet",
	"rapid", "royal", "rustic", "serene", "sharp", "silent", "spry",
	"steady", "stoic", "swift", "tranquil", "valiant", "vivid", "wise",
	"witty", "zesty",
}

var animals = []animal{
	{"badger", "🦡"}, {"bat", "🦇"}, {"bear", "🐻"}, {"beaver", "🦫"},
	{"bee", "🐝"}, {"bison", "🦬"}, {"butterfly", "🦋"}, {"camel", "🐪"},
	{"cat", "🐱"}, {"chipmunk", "🐿"}, {"crab", "🦀"}, {"crocodile", "🐊"},
	{"deer", "🦌"}, {"dodo", "🦤"}, {"dog", "🐶"}, {"dolphin", "🐬"},
	{"dove", "🕊"}, {"dragon", "🐉"}, {"duck", "🦆"}, {"eagle", "🦅"},
	{"elephant", "🐘"}, {"flamingo", "🦩"}, {"fox", "🦊"}, {"frog", "🐸"},
	{"giraffe", "🦒"}, {"gorilla", "🦍"}, {"hedgehog", "🦔"}, {"horse", "🐴"},
	{"kangaroo", "🦘"}, {"koala", "🐨"}, {"lion", "🦁"}, {"lizard", "🦎"},
	{"llama", "🦙"}, {"lobster", "🦞"}, {"monkey", "🐵"}, {"mouse", "🐭"},
	{"octopus", "🐙"}, {"otter", "🦦"}, {"owl", "🦉"}, {"panda", "🐼"},
	{"parrot", "🦜"}, {"peacock", "🦚"}, {"penguin", "🐧"}, {"rabbit", "🐰"},
	{"seal", "🦭"}, {"shark", "🦈"}, {"sloth", "🦥"}, {"snail", "🐌"},
	{"swan", "🦢"}, {"tiger", "🐯"}, {"turtle", "🐢"}, {"whale", "🐋"},
	{"wolf", "🐺"}, {"zebra", "🦓"},
}

// Generate returns count distinct adjective-animal names, drawn without
// replacement. A seeded rng makes the assignment reproducible.
func Generate(rng *rand.Rand, count int) ([]string, error) {
	total := len(adjectives) * len(animals)
	if count > total {
		return nil, fmt.Errorf("cannot generate %d distinct names from %d combinations", count, total)
	}

	combinations := make([]string, 0, total)
	for _, adjective := range adjectives {
		for _, a := range animals {
			combinations = append(combinations, adjective+"-"+a.name)
		}
	}
	rng.Shuffle(len(combinations), func(i, j int) {
		combinations[i], combinations[j] = combinations[j], combinations[i]
	})
	return combinations[:count], nil
}

// Icon returns the icon of a composite name's animal segment, or a neutral
// icon when the segment is not a known animal.
func Icon(name string) string {
	segment := name[strings.LastIndex(name, "-")+1:]
	for _, a := range animals {
		if a.name == segment {
			return a.icon
		}
	}
	return "🐾"
}

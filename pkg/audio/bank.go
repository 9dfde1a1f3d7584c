// Package audio plays the turret's sound cues.
//
// Cues are grouped in banks of interchangeable numbered clips; triggering a
// bank plays one member chosen at random. The Engine guarantees that at most
// one clip plays at a time and dispatches found/lost cues from detection
// results.
package audio

import (
	"fmt"
	"math/rand"
	"strings"
)

// Bank is a named group of interchangeable clips.
type Bank int

const (
	BankActive Bank = iota
	BankAutoSearch
	BankDeploy
	BankDisabled
	BankFire
	BankRetire
	BankSearch
)

type bankInfo struct {
	name   string
	prefix string
	size   int
}

var banks = [...]bankInfo{
	BankActive:     {"active", "turret_active_", 8},
	BankAutoSearch: {"auto-search", "turret_autosearch_", 6},
	BankDeploy:     {"deploy", "turret_deploy_", 6},
	BankDisabled:   {"disabled", "turret_disabled_", 8},
	BankFire:       {"fire", "turret_fire_4x_0", 3},
	BankRetire:     {"retire", "turret_retire_", 7},
	BankSearch:     {"search", "turret_search_", 4},
}

// Banks returns every bank in declaration order.
func Banks() []Bank {
	out := make([]Bank, len(banks))
	for i := range banks {
		out[i] = Bank(i)
	}
	return out
}

func (b Bank) valid() bool {
	return b >= 0 && int(b) < len(banks)
}

// String returns the bank name.
func (b Bank) String() string {
	if !b.valid() {
		return fmt.Sprintf("bank(%d)", int(b))
	}
	return banks[b].name
}

// Size returns the number of clips in the bank.
func (b Bank) Size() int {
	if !b.valid() {
		return 0
	}
	return banks[b].size
}

// Clip returns the name of the i-th clip (1-based).
func (b Bank) Clip(i int) string {
	if !b.valid() {
		return ""
	}
	return fmt.Sprintf("%s%d", banks[b].prefix, i)
}

// Cue selects one clip of a bank.
type Cue struct {
	Bank  Bank
	Index int
}

// Name returns the clip name of the cue.
func (c Cue) Name() string {
	return c.Bank.Clip(c.Index)
}

// PickVariant returns a clip index uniformly distributed over [1, Size].
func PickVariant(rng *rand.Rand, b Bank) int {
	return rng.Intn(b.Size()) + 1
}

// BankOf returns the bank a clip name belongs to.
func BankOf(name string) (Bank, bool) {
	for i, info := range banks {
		if strings.HasPrefix(name, info.prefix) {
			return Bank(i), true
		}
	}
	return 0, false
}

// ClipNames lists every clip of every bank.
func ClipNames() []string {
	var names []string
	for _, b := range Banks() {
		for i := 1; i <= b.Size(); i++ {
			names = append(names, b.Clip(i))
		}
	}
	return names
}

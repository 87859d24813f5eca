// Package tier maps cumulative lifetime earnings to a loyalty tier and
// its bonus. The mapping is a pure function of the cumulative total, so
// the tier a customer holds never depends on the order their earnings
// arrived in.
package tier

import "github.com/repaircoin/rcnledger/internal/program"

const bpsDenominator = 10_000

// Level describes the tier a given lifetime-earnings total sits in, plus
// progress toward the next one. NextTier is empty at the top tier.
type Level struct {
	Tier               string
	BonusAmount        int64
	BonusMultiplierBps int64
	NextTier           string
	RemainingToNext    int64
}

// For returns the tier level for a cumulative lifetime-earnings total.
func For(p *program.Program, lifetimeEarnings int64) Level {
	tiers := p.Tiers
	idx := 0

	for i, t := range tiers {
		if lifetimeEarnings >= t.MinLifetimeEarnings {
			idx = i
		}
	}

	lvl := Level{
		Tier:               tiers[idx].Name,
		BonusAmount:        tiers[idx].BonusAmount,
		BonusMultiplierBps: tiers[idx].BonusMultiplierBps,
	}

	if idx+1 < len(tiers) {
		lvl.NextTier = tiers[idx+1].Name
		lvl.RemainingToNext = tiers[idx+1].MinLifetimeEarnings - lifetimeEarnings
	}

	return lvl
}

// Bonus computes the tier bonus for a base reward earned at this level:
// the multiplier uplift plus the flat bonus.
func (l Level) Bonus(baseReward int64) int64 {
	uplift := baseReward * (l.BonusMultiplierBps - bpsDenominator) / bpsDenominator

	return uplift + l.BonusAmount
}

// Upgrade keeps tier monotonic: once attained, a tier is never lost to
// redemptions. Given the stored tier name and a freshly computed one, it
// returns whichever ranks higher in the program's tier order.
func Upgrade(p *program.Program, stored, computed string) string {
	if rank(p, computed) >= rank(p, stored) {
		return computed
	}

	return stored
}

func rank(p *program.Program, name string) int {
	for i, t := range p.Tiers {
		if t.Name == name {
			return i
		}
	}

	return -1
}

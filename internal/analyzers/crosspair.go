package analyzers

import (
	"context"
	"strings"
)

// CrossPairDetail is the CrossPair payload
type CrossPairDetail struct {
	Sector  string
	Peers   map[string]float64
	Dumping int
	Pumping int
}

func (CrossPairDetail) isDetail() {}

// CrossPair compares the symbol against its sector peers. A lone pump in a
// dumping sector is a strong fade; a sector-wide rally is not.
type CrossPair struct {
	Sectors map[string][]string // sector -> peer symbols
}

// DefaultSectors returns the pre-wired sector groups
func DefaultSectors() map[string][]string {
	return map[string][]string{
		"meme": {"DOGE_USDT", "SHIB_USDT", "PEPE_USDT", "FLOKI_USDT", "BONK_USDT"},
		"ai":   {"FET_USDT", "RNDR_USDT", "AGIX_USDT", "TAO_USDT", "WLD_USDT"},
		"l1":   {"SOL_USDT", "AVAX_USDT", "ADA_USDT", "NEAR_USDT", "APT_USDT"},
	}
}

func (a *CrossPair) Name() string { return NameCrossPair }

func (a *CrossPair) Analyze(ctx context.Context, in Inputs) (Result, error) {
	sector, peers := a.sectorFor(in.Symbol)
	if sector == "" || len(in.PeerChanges) == 0 {
		return Neutral(a.Name()), nil
	}

	detail := CrossPairDetail{Sector: sector, Peers: make(map[string]float64, 5)}

	count := 0
	for _, peer := range peers {
		if peer == in.Symbol {
			continue
		}
		change, ok := in.PeerChanges[peer]
		if !ok {
			continue
		}
		detail.Peers[peer] = change
		if change <= -2 {
			detail.Dumping++
		} else if change >= 2 {
			detail.Pumping++
		}
		count++
		if count >= 5 {
			break
		}
	}
	if count == 0 {
		return Neutral(a.Name()), nil
	}

	score := 5.0
	switch {
	case detail.Dumping >= 3:
		score = 8.5
	case detail.Pumping >= 3:
		score = 2.0
	case detail.Dumping > detail.Pumping:
		score = 6.5
	case detail.Pumping > detail.Dumping:
		score = 3.5
	}

	return Result{Name: a.Name(), Score: score, Detail: detail}, nil
}

func (a *CrossPair) sectorFor(symbol string) (string, []string) {
	base := strings.SplitN(symbol, "_", 2)[0] + "_"
	for sector, peers := range a.Sectors {
		for _, p := range peers {
			if p == symbol || strings.HasPrefix(p, base) {
				return sector, peers
			}
		}
	}
	return "", nil
}

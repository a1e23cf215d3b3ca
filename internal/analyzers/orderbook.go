package analyzers

import (
	"context"
	"math"
)

// Wall is one oversized resting order
type Wall struct {
	Price      float64
	Quantity   float64
	PctOfTotal float64
	Side       string // "bid" or "ask"
}

// OrderbookDetail is the OrderbookPressure payload
type OrderbookDetail struct {
	Imbalance       float64 // (bids-asks)/total, -1..+1
	TotalBidVolume  float64
	TotalAskVolume  float64
	Walls           []Wall
	LargestSellWall *Wall
	BandImbalance   map[float64]float64 // pct band -> imbalance within band
	SpreadPct       float64
}

func (OrderbookDetail) isDetail() {}

// OrderbookPressure scores resting sell-side liquidity above the price.
// Walls and a seller-heavy book favor a short entry.
type OrderbookPressure struct {
	WallThresholdPct float64 // pct of total volume that makes a level a wall
}

func (a *OrderbookPressure) Name() string { return NameOrderbook }

func (a *OrderbookPressure) Analyze(ctx context.Context, in Inputs) (Result, error) {
	book := in.Orderbook
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return Neutral(a.Name()), nil
	}

	var totalBid, totalAsk float64
	for _, b := range book.Bids {
		totalBid += b.Quantity
	}
	for _, ask := range book.Asks {
		totalAsk += ask.Quantity
	}
	total := totalBid + totalAsk
	if total == 0 {
		return Neutral(a.Name()), nil
	}

	imbalance := (totalBid - totalAsk) / total

	bestBid := book.Bids[0].Price
	bestAsk := book.Asks[0].Price
	mid := (bestBid + bestAsk) / 2
	spreadPct := 0.0
	if bestBid > 0 {
		spreadPct = (bestAsk - bestBid) / bestBid * 100
	}

	detail := OrderbookDetail{
		Imbalance:      imbalance,
		TotalBidVolume: totalBid,
		TotalAskVolume: totalAsk,
		BandImbalance:  make(map[float64]float64, 4),
		SpreadPct:      spreadPct,
	}

	// Aggregated pressure within price bands around the mid
	for _, band := range []float64{0.5, 1, 2, 5} {
		lo := mid * (1 - band/100)
		hi := mid * (1 + band/100)
		var bids, asks float64
		for _, b := range book.Bids {
			if b.Price >= lo {
				bids += b.Quantity
			}
		}
		for _, s := range book.Asks {
			if s.Price <= hi {
				asks += s.Quantity
			}
		}
		if bids+asks > 0 {
			detail.BandImbalance[band] = (bids - asks) / (bids + asks)
		}
	}

	// Wall detection against the combined book volume
	var sellWallCount int
	for _, lvl := range book.Asks {
		pct := lvl.Quantity / total * 100
		if pct >= a.WallThresholdPct {
			wall := Wall{Price: lvl.Price, Quantity: lvl.Quantity, PctOfTotal: pct, Side: "ask"}
			detail.Walls = append(detail.Walls, wall)
			sellWallCount++
			if detail.LargestSellWall == nil || wall.Quantity > detail.LargestSellWall.Quantity {
				w := wall
				detail.LargestSellWall = &w
			}
		}
	}
	for _, lvl := range book.Bids {
		pct := lvl.Quantity / total * 100
		if pct >= a.WallThresholdPct {
			detail.Walls = append(detail.Walls, Wall{Price: lvl.Price, Quantity: lvl.Quantity, PctOfTotal: pct, Side: "bid"})
		}
	}

	score := 0.0
	if sellWallCount > 0 {
		score += math.Min(float64(sellWallCount)*2.0, 5.0)
		if detail.LargestSellWall != nil {
			switch {
			case detail.LargestSellWall.PctOfTotal >= 15:
				score += 3.0
			case detail.LargestSellWall.PctOfTotal >= 10:
				score += 2.0
			}
		}
	}
	if imbalance < -0.2 {
		score += 2.0
	} else if imbalance < -0.1 {
		score += 1.0
	}

	return Result{Name: a.Name(), Score: clampScore(score), Detail: detail}, nil
}

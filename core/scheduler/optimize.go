package scheduler

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/evsmart/core/model"
)

// candidates returns the indexes of the price slots inside win and whether
// each one is eligible for charging.
func candidates(prices model.PriceSeries, win model.Window, p model.ScheduleParameters) (idx []int, eligible []bool) {
	limited := p.PriceLimited()
	for i := 0; i < prices.Len(); i++ {
		pt := prices.At(i)
		if !win.Contains(pt.Start) {
			continue
		}
		idx = append(idx, i)
		eligible = append(eligible, !limited || pt.Value.LessThan(p.MaxPrice))
	}
	return idx, eligible
}

// selectCheapest marks the n cheapest eligible slots. Equal prices favour the
// earlier slot.
func selectCheapest(prices model.PriceSeries, idx []int, eligible []bool, n int, out []bool) {
	pool := make([]int, 0, len(idx))
	for k, i := range idx {
		if eligible[k] {
			pool = append(pool, i)
		}
	}
	sort.SliceStable(pool, func(a, b int) bool {
		return prices.At(pool[a]).Value.LessThan(prices.At(pool[b]).Value)
	})
	if n > len(pool) {
		n = len(pool)
	}
	for _, i := range pool[:n] {
		out[i] = true
	}
}

// selectRun marks the contiguous run of n eligible slots with the lowest total
// price. When no run of n eligible slots exists the longest possible run is
// used instead. Equal totals favour the earlier run.
func selectRun(prices model.PriceSeries, idx []int, eligible []bool, n int) (start, length int) {
	longest, cur := 0, 0
	for k, ok := range eligible {
		if k > 0 && !adjacent(prices, idx[k-1], idx[k]) {
			cur = 0
		}
		if ok {
			cur++
			if cur > longest {
				longest = cur
			}
		} else {
			cur = 0
		}
	}
	if n > longest {
		n = longest
	}
	if n == 0 {
		return -1, 0
	}
	var (
		best    decimal.Decimal
		bestPos = -1
	)
	for k := 0; k+n <= len(idx); k++ {
		sum := decimal.Zero
		ok := true
		for j := k; j < k+n; j++ {
			if !eligible[j] || (j > k && !adjacent(prices, idx[j-1], idx[j])) {
				ok = false
				break
			}
			sum = sum.Add(prices.At(idx[j]).Value)
		}
		if !ok {
			continue
		}
		if bestPos < 0 || sum.LessThan(best) {
			best, bestPos = sum, k
		}
	}
	if bestPos < 0 {
		return -1, 0
	}
	return idx[bestPos], n
}

func adjacent(prices model.PriceSeries, a, b int) bool {
	return prices.At(a).End().Equal(prices.At(b).Start)
}

// optimize returns one flag per price slot marking the slots selected for
// charging inside win.
func optimize(prices model.PriceSeries, win model.Window, p model.ScheduleParameters) []bool {
	out := make([]bool, prices.Len())
	n := p.RequiredHours()
	if n == 0 {
		return out
	}
	idx, eligible := candidates(prices, win, p)
	if p.Continuous {
		start, length := selectRun(prices, idx, eligible, n)
		for i := start; start >= 0 && i < start+length; i++ {
			out[i] = true
		}
		return out
	}
	selectCheapest(prices, idx, eligible, n, out)
	return out
}

package types

import "math"

// TradeStats aggregates performance over a trade sequence. Computed on
// demand from the ledger, never stored.
type TradeStats struct {
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	FailedTrades     int     `json:"failed_trades"`
	CompletedTrades  int     `json:"completed_trades"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	TotalProfitSOL   float64 `json:"total_profit_sol"`
	AvgProfitPercent float64 `json:"avg_profit_percent"`
	WinRate          float64 `json:"win_rate"`
}

// ComputeStats derives summary statistics from the full trade sequence.
// Completed trades are successful SELLs, since only an exit realizes PnL.
func ComputeStats(trades []TradeRecord) TradeStats {
	var s TradeStats
	s.TotalTrades = len(trades)

	var sumPct float64
	for _, t := range trades {
		switch t.Status {
		case TradeStatusSuccess:
			s.SuccessfulTrades++
		case TradeStatusFailed:
			s.FailedTrades++
		}

		if t.Type != TradeTypeSell || t.Status != TradeStatusSuccess {
			continue
		}
		s.CompletedTrades++
		s.TotalProfitSOL += t.ProfitSOL
		sumPct += t.ProfitPercent
		if t.ProfitPercent > 0 {
			s.Wins++
		} else if t.ProfitPercent < 0 {
			s.Losses++
		}
	}

	if s.CompletedTrades > 0 {
		s.AvgProfitPercent = round2(sumPct / float64(s.CompletedTrades))
		s.WinRate = round1(float64(s.Wins) / float64(s.CompletedTrades) * 100)
	}
	s.TotalProfitSOL = round6(s.TotalProfitSOL)

	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

package report

import (
	"fmt"
	"strings"
	"time"

	"solana-migration-bot/internal/domain"
)

// RenderMarkdown renders the summary and per-trade table as markdown.
func RenderMarkdown(s *Summary, trades []*domain.CompletedTrade) string {
	var sb strings.Builder

	sb.WriteString("# Trade Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Take profits | %d |\n", s.TakeProfits))
	sb.WriteString(fmt.Sprintf("| Stop losses | %d |\n", s.StopLosses))
	sb.WriteString(fmt.Sprintf("| Buy failures | %d |\n", s.BuyFailures))
	sb.WriteString(fmt.Sprintf("| Win rate | %.2f%% |\n", s.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Total P/L ratio | %.4f |\n", s.TotalProfitLoss))
	sb.WriteString(fmt.Sprintf("| Mean ratio | %.4f |\n", s.MeanRatio))
	sb.WriteString(fmt.Sprintf("| Median ratio | %.4f |\n", s.MedianRatio))
	sb.WriteString(fmt.Sprintf("| Best / worst | %.4f / %.4f |\n", s.BestRatio, s.WorstRatio))
	sb.WriteString(fmt.Sprintf("| Mean hold time | %.1fs |\n", s.MeanHoldSeconds))
	sb.WriteString("\n")

	if len(trades) == 0 {
		sb.WriteString("No trades recorded.\n")
		return sb.String()
	}

	sb.WriteString("## Trades\n\n")
	sb.WriteString("| Mint | Outcome | Entry | Exit | Ratio | Hold |\n")
	sb.WriteString("|------|---------|-------|------|-------|------|\n")
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.10f | %.10f | %.4f | %s |\n",
			shortMint(t.Mint),
			t.Outcome,
			t.EntryPrice,
			t.ExitPrice,
			t.ProfitLossRatio,
			holdDuration(t),
		))
	}

	return sb.String()
}

// RenderCSV renders trades as CSV.
func RenderCSV(trades []*domain.CompletedTrade) string {
	var sb strings.Builder

	sb.WriteString("mint,outcome,entry_price,exit_price,amount,profit_loss_ratio,")
	sb.WriteString("entry_time,exit_time,entry_tx_id,exit_tx_id\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%.12f,%.12f,%.9f,%.6f,%d,%d,%s,%s\n",
			t.Mint,
			t.Outcome,
			t.EntryPrice,
			t.ExitPrice,
			t.Amount,
			t.ProfitLossRatio,
			t.EntryTime,
			t.ExitTime,
			t.EntryTxID,
			t.ExitTxID,
		))
	}

	return sb.String()
}

// shortMint abbreviates a base58 address for table display.
func shortMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:6] + ".." + mint[len(mint)-4:]
}

// holdDuration formats the hold time of a filled trade.
func holdDuration(t *domain.CompletedTrade) string {
	if t.Outcome == domain.OutcomeBuyFailed || t.EntryTime == 0 {
		return "-"
	}
	return (time.Duration(t.ExitTime-t.EntryTime) * time.Millisecond).Truncate(time.Second).String()
}

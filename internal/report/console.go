// Package report prints operator-facing status to the console: per-agent,
// per-market state, since the HTTP CRUD surface proper is out of scope
// (§1) but an operator still needs some visibility. Grounded on the
// teacher's internal/adapters/notify.Console (compact vs. table modes).
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/riverbend/marketmaker/internal/domain"
)

// Console is a status reporter that writes to an io.Writer.
type Console struct {
	out   io.Writer
	table bool // full table vs. one-line compact summary
}

// NewConsole builds a reporter writing to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter builds a reporter over an arbitrary writer, for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// ReportAgent prints one agent's current state: its active markets, their
// agentState, and the drawdown guard's status.
func (c *Console) ReportAgent(agent *domain.TradingAgent, exchange *domain.Exchange, totalBalance float64) {
	if c.table {
		c.printTable(agent, exchange, totalBalance)
	} else {
		c.printCompact(agent, exchange, totalBalance)
	}
}

func (c *Console) printCompact(agent *domain.TradingAgent, exchange *domain.Exchange, totalBalance float64) {
	now := time.Now().Format("15:04:05")
	dd := domain.Drawdown(agent.PeakMarketAmount, totalBalance)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] agent %s on %s: %d active mkts, total=%.4f%s dd=%.1f%%",
		now, agent.ID, exchange.Name, len(agent.ActiveMarkets), totalBalance, exchange.Fiat, dd*100)
	if agent.Paused {
		sb.WriteString(" PAUSED")
	}

	shown := 0
	for _, market := range agent.ActiveMarkets {
		if shown >= 4 {
			break
		}
		state := agent.StrategyState[market]
		fmt.Fprintf(&sb, " | %s:%s", market, state.AgentState)
		shown++
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printTable(agent *domain.TradingAgent, exchange *domain.Exchange, totalBalance float64) {
	now := time.Now().Format("15:04:05")
	dd := domain.Drawdown(agent.PeakMarketAmount, totalBalance)
	fmt.Fprintf(c.out, "\n[%s] agent %s on %s — total=%.4f %s, peak=%.4f, drawdown=%.1f%%, paused=%v\n\n",
		now, agent.ID, exchange.Name, totalBalance, exchange.Fiat, agent.PeakMarketAmount, dd*100, agent.Paused)

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "State", "Trend", "Price Lvl", "Entry", "Open Orders")

	for _, market := range agent.ActiveMarkets {
		state := agent.StrategyState[market]
		openOrders := len(exchange.OpenOrdersForMarket(market))
		entry := "-"
		if !state.EntryTimestamp.IsZero() {
			entry = fmt.Sprintf("%.6f", state.EntryPrice)
		}
		table.Append(
			market,
			string(state.AgentState),
			fmt.Sprintf("%.3f", state.Trend),
			fmt.Sprintf("%.3f", state.PriceLevel),
			entry,
			fmt.Sprintf("%d", openOrders),
		)
	}
	table.Render()

	if len(exchange.Events) > 0 {
		c.printRecentEvents(exchange.Events, 5)
	}
}

func (c *Console) printRecentEvents(events []domain.Event, n int) {
	start := len(events) - n
	if start < 0 {
		start = 0
	}
	fmt.Fprintln(c.out, "\n  Recent events:")
	for _, e := range events[start:] {
		fmt.Fprintf(c.out, "  %s  %-28s %v\n", e.Timestamp.Format("15:04:05"), e.Type, e.Data)
	}
}

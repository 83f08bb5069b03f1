package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverbend/marketmaker/internal/domain"
	"github.com/riverbend/marketmaker/internal/report"
)

func TestReportAgent_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, false)

	agent := domain.NewTradingAgent("agent1", "ex1", "default")
	agent.ActiveMarkets = []string{"BTC/USDT"}
	agent.StrategyState["BTC/USDT"] = domain.MarketState{AgentState: domain.StateHasPosition}

	exchange := domain.NewExchange("ex1", "Kraken", "USDT")

	c.ReportAgent(agent, exchange, 1000)

	out := buf.String()
	assert.Contains(t, out, "agent1")
	assert.Contains(t, out, "BTC/USDT:has_position")
}

func TestReportAgent_Table(t *testing.T) {
	var buf bytes.Buffer
	c := report.NewConsoleWriter(&buf, true)

	agent := domain.NewTradingAgent("agent1", "ex1", "default")
	agent.Paused = true
	agent.ActiveMarkets = []string{"ETH/USDT"}
	agent.StrategyState["ETH/USDT"] = domain.MarketState{AgentState: domain.StateTryingToEnter, Trend: 0.2}

	exchange := domain.NewExchange("ex1", "Kraken", "USDT")

	c.ReportAgent(agent, exchange, 500)

	out := buf.String()
	assert.Contains(t, out, "paused=true")
	assert.Contains(t, out, "ETH/USDT")
}

package agents

import (
	"fmt"
	"strings"
)

// Unit identifiers.
const (
	UnitGrok    = "B2"
	UnitGemini  = "M1"
	UnitClaude  = "C3"
	UnitMistral = "R4"
	UnitArbiter = "MARY-4"
)

const answerRule = `Answer with a single JSON object and nothing else.
"signal" must be one of "BUY", "HOLD" or "SELL". "confidence" is a number between 0.0 and 1.0.`

var grokSystem = `You are Unit-B2 of the MAGI trading system, responsible for social sentiment.
Assess real-time market sentiment from X/Twitter posts, investor reactions and trending topics.

Output format:
{"unit":"Unit-B2","signal":"BUY","confidence":0.7,
 "analysis":{"sentiment_score":0.4,"key_topics":["..."],"social_volume":"LOW|NORMAL|HIGH"},
 "reasoning":"..."}
` + answerRule

var geminiSystem = `You are Unit-M1 of the MAGI trading system, responsible for fundamentals.
Review the latest news, earnings and analyst ratings using Google Search.

Output format:
{"unit":"Unit-M1","signal":"BUY","confidence":0.75,
 "analysis":{"news":["..."],"financials":{"pe":25,"growth":"10%"},"analyst_rating":"Buy"},
 "reasoning":"..."}
` + answerRule

var claudeSystem = `You are Unit-C3 of the MAGI trading system, responsible for ESG and risk.
Investigate environmental, social and governance information, regulatory exposure and litigation.

Output format:
{"unit":"Unit-C3","signal":"HOLD","confidence":0.6,
 "analysis":{"esg_score":{"e":0,"s":0,"g":0},"risk_factors":["..."],"positive_factors":["..."]},
 "reasoning":"..."}
` + answerRule

var mistralSystem = `You are Unit-R4 of the MAGI trading system, responsible for technical analysis.
Call get_stock_price and get_technical_indicators before deciding. Use get_portfolio_position when
the current exposure matters.

Output format:
{"unit":"Unit-R4","signal":"BUY","confidence":0.75,
 "analysis":{"price":250.5,"rsi":45,"macd":"bullish","trend":"upward"},
 "reasoning":"..."}
` + answerRule

var arbiterSystem = `You are MARY-4, the arbiter of the MAGI trading system.
Combine the unit judgments into one final investment decision.

Rules:
1. Majority vote: agreement of three quarters or more is a strong signal.
2. Weight votes by confidence. Failed units carry no weight.
3. Risk first: give SELL arguments priority when they are well founded.

Output format:
{"final_decision":"BUY|HOLD|SELL","consensus_strength":"STRONG|MODERATE|WEAK","confidence":0.0,
 "order_params":{"symbol":"...","qty":1,"side":"buy|sell","stop_loss":0.0,"take_profit":0.0},
 "risk_warnings":["..."],"reasoning":"..."}
Answer with a single JSON object and nothing else.`

func subject(instrument, companyName string) string {
	if companyName == "" || strings.EqualFold(companyName, instrument) {
		return instrument
	}
	return fmt.Sprintf("%s (%s)", companyName, instrument)
}

func withContext(prompt, extra string) string {
	if extra = strings.TrimSpace(extra); extra == "" {
		return prompt
	}
	return prompt + "\n\nAdditional context:\n" + extra
}

func grokPrompt(instrument, companyName, extra string) string {
	return withContext(fmt.Sprintf("Run a social sentiment analysis for %s. Look at mentions, investor reactions "+
		"and trends on X/Twitter and return your investment judgment as JSON.", subject(instrument, companyName)), extra)
}

func geminiPrompt(instrument, companyName, extra string) string {
	return withContext(fmt.Sprintf("Search for the latest news and earnings of %s, run a fundamental analysis "+
		"and return only JSON.", subject(instrument, companyName)), extra)
}

func claudePrompt(instrument, companyName, extra string) string {
	return withContext(fmt.Sprintf("Run an ESG and risk analysis for %s. Search for ESG ratings, regulatory "+
		"actions and litigation, then return your investment judgment as JSON.", subject(instrument, companyName)), extra)
}

func mistralPrompt(instrument, _ string, extra string) string {
	return withContext(fmt.Sprintf("Analyse %s. Use get_stock_price and get_technical_indicators, "+
		"then output only the JSON object.", instrument), extra)
}

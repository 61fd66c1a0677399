// Package source loads simulation results from the strategy backend and
// turns them into chart inputs.
//
// # Wire format
//
// The backend's POST /simulate_strategy endpoint answers with
//
//	{"status": "success", "results": {
//	    "ticker": "AAPL", "start": "2025-10-01", "end": "2025-11-12",
//	    "initial_capital": 100000.0,
//	    "metrics": {"ROI%": 1.23, "MaxDrawdown%": -0.5},
//	    "portfolio_values": [{"date": "...", "Close": 1.0, "sentiment_score": 0.3, "total_value": 1.0}],
//	    "transactions": [{"date": "...", "action": "BUY", "qty": 10, "price": 1.0, "sentiment": 0.3}]}}
//
// [Decode] accepts that envelope or the bare results object, the
// "price_history" alias for "portfolio_values", and "price" in place of
// "Close".
//
// # Loading
//
// [Client] calls the backend over HTTP with retries. Raw responses can be
// kept in a [Store]: [DirStore] writes one JSON file per request and
// [MongoStore] keeps them in a MongoDB collection.
//
// # Derived values
//
// [ComputeMetrics] recomputes return and drawdown from portfolio values when
// the backend omitted them, and [Mood] labels the average sentiment.
package source

package model

// ScoreCard is the composite Crypash assessment of one AssetRecord.
// Sub-scores are each 0-100 and independently computed; Total is the
// fixed-weight combination 0.3*Financial + 0.3*Network + 0.2*Technology +
// 0.2*Tokenomics, rounded and clamped to [0,100].
type ScoreCard struct {
	Symbol     string   `json:"symbol"`
	Financial  float64  `json:"financial"`
	Network    float64  `json:"network"`
	Technology float64  `json:"technology"`
	Tokenomics float64  `json:"tokenomics"`
	Total      int      `json:"total"`
	Verdict    string   `json:"verdict"`
	Details    []string `json:"details"`
}

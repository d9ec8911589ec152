package api

// KaldiWordAlignment is one recognized word with its offset inside the
// segment, in seconds.
type KaldiWordAlignment struct {
	Start      float64 `json:"start"`
	Length     float64 `json:"length"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
}

type KaldiHypothesis struct {
	Transcript    string               `json:"transcript"`
	Likelihood    float64              `json:"likelihood"`
	WordAlignment []KaldiWordAlignment `json:"word-alignment,omitempty"`
}

type KaldiPartial struct {
	Hypotheses []KaldiHypothesis `json:"hypotheses"`
	Final      bool              `json:"final"`
}

// KaldiResult is one message from the kaldi gstreamer backend.
type KaldiResult struct {
	Status        int          `json:"status"`
	SegmentStart  float64      `json:"segment-start"`
	SegmentLength float64      `json:"segment-length"`
	TotalLength   float64      `json:"total-length"`
	Result        KaldiPartial `json:"result,omitempty"`
	Segment       int          `json:"segment"`
	ID            string       `json:"id,omitempty"`
}

// AlignmentInput is one segment in an align request.
type AlignmentInput struct {
	Text     string         `json:"text"`
	Start    float64        `json:"start"`
	End      float64        `json:"end"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AlignRequest is the body of POST /align/{id}.
type AlignRequest struct {
	Alignments []AlignmentInput `json:"alignments"`
}

// ProcessResponse reports what one invocation changed.
type ProcessResponse struct {
	Tokens    int    `json:"tokens"`
	Dropped   int    `json:"dropped"`
	Shifted   int    `json:"shifted"`
	Sentences int    `json:"sentences"`
	RequestID string `json:"requestId,omitempty"`
}

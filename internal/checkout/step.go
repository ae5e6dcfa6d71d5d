package checkout

import "encoding/json"

// Step is the position of a checkout session in the flow.
type Step int

const (
	StepAmount Step = iota
	StepDonorDetails
	StepReview
	StepReceipt
)

var stepNames = map[Step]string{
	StepAmount:       "amount",
	StepDonorDetails: "donor_details",
	StepReview:       "review",
	StepReceipt:      "receipt",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}{Index: int(s), Name: s.String()})
}

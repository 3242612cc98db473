// Package interview holds the recruiter workflow's domain types: generated
// questions, candidate evaluations, job description presets and the step
// machine that sequences the two model calls.
package interview

type Difficulty string

const (
	DifficultyFoundation Difficulty = "Foundation"
	DifficultyAdvanced   Difficulty = "Advanced"
	DifficultyExpert     Difficulty = "Expert"
)

type Recommendation string

const (
	RecommendStrongHire Recommendation = "Strong Hire"
	RecommendHire       Recommendation = "Hire"
	RecommendCaution    Recommendation = "Caution"
	RecommendNoHire     Recommendation = "No Hire"
)

// Question is one generated interview question card.
type Question struct {
	ID         string     `json:"id" validate:"required" jsonschema:"description=Unique id of the question"`
	Category   string     `json:"category" validate:"required" jsonschema:"description=Question category such as technical depth or soft skills"`
	Scenario   string     `json:"scenario" validate:"required" jsonschema:"description=Concrete scenario-based question"`
	Intent     string     `json:"intent" validate:"required" jsonschema:"description=Ability the question probes"`
	KeyPoints  []string   `json:"keyPoints" validate:"required,dive,required" jsonschema:"description=Keywords an excellent answer contains"`
	Difficulty Difficulty `json:"difficulty" validate:"required,oneof=Foundation Advanced Expert" jsonschema:"enum=Foundation,enum=Advanced,enum=Expert"`
}

// RadarPoint is one axis of the evaluation radar chart.
type RadarPoint struct {
	Subject  string  `json:"subject" validate:"required" jsonschema:"description=Dimension name"`
	A        float64 `json:"A" validate:"gte=0,lte=100" jsonschema:"description=Score from 0 to 100"`
	FullMark float64 `json:"fullMark" validate:"gte=0" jsonschema:"description=Always 100"`
}

// Evaluation is the model's verdict on a candidate after the interview.
type Evaluation struct {
	Summary              string         `json:"summary" validate:"required" jsonschema:"description=Overall assessment"`
	RadarData            []RadarPoint   `json:"radarData" validate:"required,min=1,dive" jsonschema:"description=Radar chart scores"`
	Strengths            []string       `json:"strengths" validate:"required" jsonschema:"description=Main strengths"`
	Weaknesses           []string       `json:"weaknesses" validate:"required" jsonschema:"description=Main weaknesses or risks"`
	HiringRecommendation Recommendation `json:"hiringRecommendation" validate:"required,oneof='Strong Hire' Hire Caution 'No Hire'" jsonschema:"enum=Strong Hire,enum=Hire,enum=Caution,enum=No Hire"`
	Reasoning            string         `json:"reasoning" validate:"required" jsonschema:"description=Reasoning behind the recommendation"`
	FollowUp             []string       `json:"followUp,omitempty" jsonschema:"description=Additional findings appended on request"`
}

// JD is a job description the recruiter can start from.
type JD struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

package interview

// PresetJDs are the built-in job descriptions offered on the setup step.
var PresetJDs = []JD{
	{
		ID:      "senior-frontend",
		Title:   "Senior Frontend Engineer",
		Content: "We need a senior frontend engineer with 5+ years of React, TypeScript and modern state management. You will lead architecture decisions, mentor junior engineers and own performance. AI integration and WebGL experience is a plus.",
	},
	{
		ID:      "product-manager",
		Title:   "Senior Product Manager - AI",
		Content: "We are looking for a product manager to lead our GenAI vertical. B2B SaaS experience is required, along with defining product strategy from zero to one and working closely with engineering. Strong data analysis and communication skills are needed.",
	},
	{
		ID:      "backend-architect",
		Title:   "Backend Systems Architect",
		Content: "Design scalable distributed systems with Go and Kubernetes. Requires deep understanding of microservices, database optimization (SQL/NoSQL) and cloud infrastructure (AWS/GCP).",
	},
}

// FindJD looks up a preset by id.
func FindJD(id string) (JD, bool) {
	for _, jd := range PresetJDs {
		if jd.ID == id {
			return jd, true
		}
	}
	return JD{}, false
}

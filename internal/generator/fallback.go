package generator

// FallbackPayload returns the canned category-to-topics mapping served when no
// provider is configured or reachable, so the rest of the pipeline keeps
// working offline and tests stay deterministic.
func FallbackPayload() map[string][]string {
	return map[string][]string{
		"DSA":           {"Arrays", "Linked Lists", "Recursion", "Sorting Algorithms"},
		"Development":   {"Python Basics", "FastAPI Framework", "REST API Design", "PostgreSQL CRUD"},
		"Cloud":         {"AWS Basics", "Deployment Pipelines", "Docker Essentials"},
		"Core Subjects": {"Operating Systems Concepts", "Database Normalization"},
		"Aptitude":      {"Logical Reasoning", "Quantitative Aptitude"},
		"System Design": {"Scalability Concepts"},
	}
}

package risk

var recommendations = map[Level][]string{
	LevelLow: {
		"Continue healthy lifestyle practices",
		"Maintain regular social connections",
		"Practice stress management techniques",
	},
	LevelMedium: {
		"Consider speaking with a mental health professional",
		"Increase physical activity and exercise",
		"Establish a consistent sleep schedule",
		"Practice mindfulness or meditation",
	},
	LevelHigh: {
		"Schedule an appointment with a therapist or counselor",
		"Reach out to trusted friends or family members",
		"Consider professional mental health support",
		"Explore crisis support resources",
	},
	LevelCritical: {
		"Contact a mental health crisis line immediately",
		"Reach out to a trusted person in your life",
		"Consider emergency mental health services",
		"Do not hesitate to seek immediate professional help",
	},
}

// Recommendations returns a copy of the canned guidance for a level.
// Unknown levels get an empty list.
func Recommendations(level Level) []string {
	return append([]string{}, recommendations[level]...)
}

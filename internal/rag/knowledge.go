package rag

var defaultDocuments = []Document{
	{
		ID:       "kn_001",
		Title:    "Depression Symptoms and Signs",
		Content:  "Depression is characterized by persistent sadness, loss of interest in activities, changes in sleep patterns, fatigue, feelings of worthlessness, difficulty concentrating, and sometimes thoughts of death or suicide.",
		Category: CategoryDepression,
	},
	{
		ID:       "kn_002",
		Title:    "Anxiety Disorder Management",
		Content:  "Anxiety disorders can be managed through cognitive-behavioral therapy, medication, lifestyle changes including regular exercise, meditation, and breathing techniques.",
		Category: CategoryAnxiety,
	},
	{
		ID:       "kn_003",
		Title:    "Crisis Support Resources",
		Content:  "In crisis situations, contact the National Suicide Prevention Lifeline at 988 (US), Crisis Text Line by texting HOME to 741741, or go to the nearest emergency room.",
		Category: CategoryCrisis,
	},
	{
		ID:       "kn_004",
		Title:    "Sleep Hygiene Practices",
		Content:  "Good sleep hygiene includes maintaining consistent sleep schedule, creating a dark and quiet environment, avoiding caffeine before bed, limiting screen time, and exercise regularly.",
		Category: CategoryLifestyle,
	},
	{
		ID:       "kn_005",
		Title:    "Mindfulness and Meditation",
		Content:  "Mindfulness meditation can help reduce anxiety and depression by focusing on the present moment, observing thoughts without judgment, and practicing regular breathing exercises.",
		Category: CategoryCoping,
	},
	{
		ID:       "crisis_001",
		Title:    "National Suicide Prevention Lifeline",
		Content:  "24/7 support for people in suicidal crisis. Call 988 (US)",
		Category: CategoryCrisis,
	},
	{
		ID:       "crisis_002",
		Title:    "Crisis Text Line",
		Content:  "Text HOME to 741741 for free, confidential support 24/7",
		Category: CategoryCrisis,
	},
	{
		ID:       "therapy_001",
		Title:    "Cognitive Behavioral Therapy (CBT)",
		Content:  "Evidence-based therapy focusing on changing thought patterns and behaviors",
		Category: CategoryTherapy,
	},
	{
		ID:       "therapy_002",
		Title:    "Finding a Therapist",
		Content:  "Guide to finding mental health professionals and therapists in your area",
		Category: CategoryTherapy,
	},
	{
		ID:       "lifestyle_001",
		Title:    "Sleep Hygiene",
		Content:  "Tips for improving sleep quality and establishing healthy sleep patterns",
		Category: CategoryLifestyle,
	},
	{
		ID:       "lifestyle_002",
		Title:    "Physical Exercise Benefits",
		Content:  "How regular exercise improves mental health and reduces anxiety",
		Category: CategoryLifestyle,
	},
	{
		ID:       "lifestyle_003",
		Title:    "Nutrition for Mental Health",
		Content:  "Foods and nutrients that support mental wellbeing and mood",
		Category: CategoryLifestyle,
	},
	{
		ID:       "coping_001",
		Title:    "Mindfulness Meditation",
		Content:  "Techniques for practicing mindfulness to reduce stress and anxiety",
		Category: CategoryCoping,
	},
	{
		ID:       "coping_002",
		Title:    "Breathing Exercises",
		Content:  "Step-by-step breathing techniques for managing anxiety and panic",
		Category: CategoryCoping,
	},
	{
		ID:       "coping_003",
		Title:    "Journaling for Mental Health",
		Content:  "How to use journaling as a tool for emotional processing and self-reflection",
		Category: CategoryCoping,
	},
}

// DefaultDocuments returns the built-in knowledge base.
func DefaultDocuments() []Document {
	return append([]Document(nil), defaultDocuments...)
}

// DefaultStore returns a Store over the built-in knowledge base.
func DefaultStore() *Store {
	s, err := NewStore(defaultDocuments)
	if err != nil {
		panic("rag: invalid default knowledge base: " + err.Error())
	}
	return s
}

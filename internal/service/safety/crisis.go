package safety

// SupportiveRefusalMessage replaces provider output whenever the verdict's
// policy action is supportive_refusal. Hotline numbers are Hong Kong services.
const SupportiveRefusalMessage = "I hear that you are in a lot of pain right now. " +
	"I cannot help with anything that could harm you, but I care about your safety " +
	"and we can take one small step together. If you may be in immediate danger, " +
	"please call 999. You can also contact The Samaritans Hong Kong (2896 0000), " +
	"Suicide Prevention Services (2382 0000), or The Samaritan Befrienders Hong Kong (2389 2222)."

package domain

// Canned assistant replies, sent as bot-message.
const (
	WelcomeReply = "Hello! I'm your OfficePulse AI assistant. I can answer any type of question, but I specialize in " +
		"business, corporate, and OfficePulse domain-related topics including workplace management, HR matters, " +
		"business operations, and our platform features. How can I help you today?"
	EmptyPromptReply = "I didn't receive your message properly. Could you please try sending it again?"
	AuthFailureReply = "I'm experiencing authentication issues with my AI service. Please contact support if this persists."
	RateLimitReply   = "I'm currently receiving too many requests. Please wait a moment and try again."
	NetworkReply     = "I'm having network connectivity issues. Please check your internet connection and try again."
	FallbackReply    = "I can answer any business, corporate, or OfficePulse domain-related questions. I'm currently " +
		"experiencing some technical difficulties, but I'm here to help with workplace management, HR matters, " +
		"business operations, and our platform features. Could you please try asking your question again?"
)

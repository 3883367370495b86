package requests

// CreateConversationRequest creates a conversation; an empty title becomes the default.
type CreateConversationRequest struct {
	Title string `json:"title" binding:"max=256"`
}

// RenameConversationRequest renames a conversation.
type RenameConversationRequest struct {
	Title string `json:"title" binding:"required,max=256"`
}

// SendMessageRequest submits one user message. Blank text is rejected by the
// domain so the error kind stays consistent across transports.
type SendMessageRequest struct {
	Text string `json:"text" binding:"max=32000"`
}

// CredentialsRequest is used for sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerificationRequest asks for another verification email.
type VerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// SignOutRequest revokes a refresh token.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

package main

// ContactCopy is the visitor-facing text of the contact form.
type ContactCopy struct {
	Title       string
	Description string
	Name        string
	Email       string
	Message     string
	Submit      string
	Sending     string
	Success     string
	Error       string
}

var (
	ContactEN = ContactCopy{
		Title:       "Get In Touch",
		Description: "Available for remote opportunities, on-demand projects, and technical collaborations.",
		Name:        "Name",
		Email:       "Email",
		Message:     "Message",
		Submit:      "Send Message",
		Sending:     "Sending...",
		Success:     "Message sent successfully!",
		Error:       "Failed to send message. Please try again.",
	}

	ContactPT = ContactCopy{
		Title:       "Entre em Contato",
		Description: "Disponível para oportunidades remotas, projetos sob demanda e colaborações técnicas.",
		Name:        "Nome",
		Email:       "E-mail",
		Message:     "Mensagem",
		Submit:      "Enviar Mensagem",
		Sending:     "Enviando...",
		Success:     "Mensagem enviada com sucesso!",
		Error:       "Falha ao enviar mensagem. Tente novamente.",
	}
)

// contactCopy picks the copy for lang, English when unknown.
func contactCopy(lang string) ContactCopy {
	switch lang {
	case "pt", "pt-BR", "pt-br":
		return ContactPT
	default:
		return ContactEN
	}
}

// label returns the localized label of a submission field.
func (c ContactCopy) label(field string) string {
	switch field {
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "message":
		return c.Message
	}
	return field
}

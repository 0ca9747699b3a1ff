package apperrors

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Catalog keys for user-facing messages.
const (
	KeyOffline           = "errors.offline"
	KeyServerUnreachable = "errors.server_unreachable"
	KeyConnection        = "errors.connection"
	KeySessionExpired    = "errors.session_expired"
	KeyDuplicate         = "errors.duplicate"
	KeyValidation        = "errors.validation"
	KeyNameSetRequired   = "errors.name_set_required"
	KeyInvalidCondition  = "errors.invalid_condition"
	KeyInvalidQuantity   = "errors.invalid_quantity"
	KeyInvalidPrice      = "errors.invalid_price"
	KeyTagEmpty          = "errors.tag_empty"
	KeyTagDuplicate      = "errors.tag_duplicate"
	KeyItemNotFound      = "errors.item_not_found"
	KeyInvalidLogin      = "errors.invalid_login"
	KeyUnauthorized      = "errors.unauthorized"
	KeyEmailTaken        = "errors.email_taken"
	KeyRateLimited       = "errors.rate_limited"
	KeyInvalidCSV        = "errors.invalid_csv"
	KeyInvalidBody       = "errors.invalid_body"
	KeyImageRequired     = "errors.image_required"
	KeyCSVRequired       = "errors.csv_required"
	KeyFileTooLarge      = "errors.file_too_large"
	KeyFileUnreadable    = "errors.file_unreadable"
	KeyImageType         = "errors.image_type"
	KeyUnexpected        = "errors.unexpected"
)

// DefaultLanguage is the shop's language.
var DefaultLanguage = language.French

var catalog = map[language.Tag]map[string]string{
	language.French: {
		KeyOffline:           "Pas de connexion internet. Veuillez vérifier votre connexion.",
		KeyServerUnreachable: "Impossible de se connecter au serveur. Veuillez réessayer.",
		KeyConnection:        "Problème de connexion. Veuillez réessayer.",
		KeySessionExpired:    "Votre session a expiré. Veuillez vous reconnecter.",
		KeyDuplicate:         "Cette entrée existe déjà.",
		KeyValidation:        "Certains champs sont invalides.",
		KeyNameSetRequired:   "Le nom et l'édition sont requis",
		KeyInvalidCondition:  "État inconnu : %s",
		KeyInvalidQuantity:   "La quantité doit être positive",
		KeyInvalidPrice:      "Le prix doit être positif",
		KeyTagEmpty:          "Le tag ne peut pas être vide",
		KeyTagDuplicate:      "Le tag %s existe déjà",
		KeyItemNotFound:      "Carte introuvable",
		KeyInvalidLogin:      "Email ou mot de passe invalide",
		KeyUnauthorized:      "Authentification requise",
		KeyEmailTaken:        "Cet email est déjà utilisé",
		KeyRateLimited:       "Trop de tentatives. Réessayez dans %d minutes.",
		KeyInvalidCSV:        "Fichier CSV invalide : %s",
		KeyInvalidBody:       "Requête invalide",
		KeyImageRequired:     "Une image est requise",
		KeyCSVRequired:       "Un fichier CSV est requis",
		KeyFileTooLarge:      "Fichier trop volumineux (%d Mo maximum)",
		KeyFileUnreadable:    "Impossible de lire le fichier",
		KeyImageType:         "Format d'image non pris en charge (JPEG, PNG, GIF ou WebP)",
		KeyUnexpected:        "Une erreur inattendue est survenue",
	},
	language.English: {
		KeyOffline:           "No internet connection. Please check your connection.",
		KeyServerUnreachable: "Unable to reach the server. Please try again.",
		KeyConnection:        "Connection problem. Please try again.",
		KeySessionExpired:    "Your session has expired. Please sign in again.",
		KeyDuplicate:         "This entry already exists.",
		KeyValidation:        "Some fields are invalid.",
		KeyNameSetRequired:   "Name and edition are required",
		KeyInvalidCondition:  "Unknown condition: %s",
		KeyInvalidQuantity:   "Quantity must be positive",
		KeyInvalidPrice:      "Price must be positive",
		KeyTagEmpty:          "Tag cannot be empty",
		KeyTagDuplicate:      "Tag %s already exists",
		KeyItemNotFound:      "Item not found",
		KeyInvalidLogin:      "Invalid email or password",
		KeyUnauthorized:      "Authentication required",
		KeyEmailTaken:        "This email is already registered",
		KeyRateLimited:       "Too many attempts. Try again in %d minutes.",
		KeyInvalidCSV:        "Invalid CSV file: %s",
		KeyInvalidBody:       "Invalid request",
		KeyImageRequired:     "An image file is required",
		KeyCSVRequired:       "A CSV file is required",
		KeyFileTooLarge:      "File too large (max %d MB)",
		KeyFileUnreadable:    "Could not read the file",
		KeyImageType:         "Unsupported image type (JPEG, PNG, GIF or WebP)",
		KeyUnexpected:        "An unexpected error occurred",
	},
}

var supported = []language.Tag{language.French, language.English}

var matcher = language.NewMatcher(supported)

func init() {
	for tag, messages := range catalog {
		for key, msg := range messages {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// ParseLocale parses a configured locale, falling back to DefaultLanguage.
func ParseLocale(locale string) language.Tag {
	if locale == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, _ := matcher.Match(tag)
	return supported[idx]
}

// PrinterFor resolves an Accept-Language header to a printer, using fallback
// when the header is empty or unparsable.
func PrinterFor(acceptLanguage string, fallback language.Tag) *message.Printer {
	tag := fallback
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return message.NewPrinter(tag)
}

package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	// PublicHost is the externally reachable host (no scheme) Twilio uses
	// for webhooks and the media stream.
	PublicHost string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	AssemblyAIKey string

	CerebrasKey     string
	CerebrasModelID string

	DeepgramKey   string
	DeepgramModel string

	ElevenLabsKey     string
	ElevenLabsVoiceID string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	publicHost := os.Getenv("PUBLIC_HOST")
	if publicHost == "" {
		log.Println("Warning: PUBLIC_HOST not set - Twilio webhooks and media streaming will not work")
	}

	accountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_FROM_NUMBER")
	if accountSID == "" || authToken == "" {
		log.Println("Warning: TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN not set - outbound calling will not work")
	}
	if fromNumber == "" {
		log.Println("Warning: TWILIO_FROM_NUMBER not set - calls cannot be placed")
	}

	assemblyAIKey := os.Getenv("ASSEMBLYAI_API_KEY")
	if assemblyAIKey == "" {
		log.Println("Warning: ASSEMBLYAI_API_KEY not set - transcription will not work")
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	cerebrasModel := os.Getenv("CEREBRAS_MODEL_ID")
	if cerebrasModel == "" {
		cerebrasModel = "gpt-oss-120b"
	}
	if cerebrasKey == "" {
		log.Println("Warning: CEREBRAS_API_KEY not set - LLM will not work")
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	deepgramModel := os.Getenv("DEEPGRAM_TTS_MODEL")
	if deepgramModel == "" {
		deepgramModel = "aura-2-thalia-en"
	}
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - speech synthesis will not work")
	}

	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	supabaseBucket := os.Getenv("SUPABASE_BUCKET")
	if supabaseBucket == "" {
		supabaseBucket = "call-recordings"
	}
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL/SUPABASE_SERVICE_ROLE_KEY not set - recordings will not be archived")
	}

	log.Printf("config: HTTP_ADDRESS=%s PUBLIC_HOST=%s", addr, publicHost)
	return Config{
		HTTPAddress:       addr,
		PublicHost:        publicHost,
		TwilioAccountSID:  accountSID,
		TwilioAuthToken:   authToken,
		TwilioFromNumber:  fromNumber,
		AssemblyAIKey:     assemblyAIKey,
		CerebrasKey:       cerebrasKey,
		CerebrasModelID:   cerebrasModel,
		DeepgramKey:       deepgramKey,
		DeepgramModel:     deepgramModel,
		ElevenLabsKey:     elevenKey,
		ElevenLabsVoiceID: voiceID,
		SupabaseURL:       supabaseURL,
		SupabaseKey:       supabaseKey,
		SupabaseBucket:    supabaseBucket,
	}
}

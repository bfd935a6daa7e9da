package analysis

import "fmt"

// systemPrompt is the fixed framing shared by both generation requests.
const systemPrompt = "You are an expert sales call analyst. Provide detailed, actionable feedback."

const sentimentPromptTemplate = `Analyze the tone and sentiment of this sales conversation.
Rate each metric (Empathy, Engagement, Enthusiasm, Politeness) between 0 and 100 for both the Agent and the Prospect separately.

Provide your response in this exact JSON format:
{
  "agent": {
    "empathy": <score>,
    "engagement": <score>,
    "enthusiasm": <score>,
    "politeness": <score>,
    "general_sentiment": "Positive/Neutral/Negative",
    "profanity_detected": false
  },
  "prospect": {
    "empathy": <score>,
    "engagement": <score>,
    "enthusiasm": <score>,
    "politeness": <score>,
    "general_sentiment": "Positive/Neutral/Negative",
    "profanity_detected": false
  }
}

Transcript:
%s`

const performancePromptTemplate = `You are an AI performance coach.
Based on this sales call transcript, generate:
1. A short call summary (2-3 sentences)
2. 3 positive highlights (as a JSON array)
3. 3 improvement recommendations (as a JSON array)
4. An overall performance score (0-100)

Provide your response in this exact JSON format:
{
  "summary": "<summary text>",
  "positives": ["<positive 1>", "<positive 2>", "<positive 3>"],
  "improvements": ["<improvement 1>", "<improvement 2>", "<improvement 3>"],
  "score": <0-100>
}

Transcript:
%s`

// SentimentPrompt asks for per-party tone metrics in a fixed JSON shape.
func SentimentPrompt(transcript string) string {
	return fmt.Sprintf(sentimentPromptTemplate, transcript)
}

// PerformancePrompt asks for coaching feedback in a fixed JSON shape.
func PerformancePrompt(transcript string) string {
	return fmt.Sprintf(performancePromptTemplate, transcript)
}

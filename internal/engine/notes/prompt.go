package notes

// LLM prompt templates: data only, no logic.

const systemNotes = `You are an expert note-taking assistant. You turn lecture and video transcripts into clear study notes and reply with JSON only.`

// notesPrompt args: title, transcript excerpt.
const notesPrompt = `Generate comprehensive, well-structured notes from the following video transcript.

Video Title: %s

Requirements:
1. Create a concise summary (2-3 sentences)
2. Extract 5-8 key points as bullet points
3. Organize content into logical sections with headings
4. Use clear, educational language
5. Highlight important concepts, definitions, and examples
6. Format the output as structured JSON

Transcript:
%s

Return ONLY a valid JSON object with this exact structure:
{
  "summary": "Brief overview of the content",
  "keyPoints": ["Point 1", "Point 2"],
  "sections": [
    {"heading": "Section Title", "content": "Detailed content for this section"}
  ],
  "tags": ["tag1", "tag2", "tag3"]
}`

const systemSummary = `You write one-sentence previews. Output the sentence only, no quotes.`

// summaryPrompt args: max length, text excerpt.
const summaryPrompt = `Summarize the following text in one concise sentence (max %d characters):
%s`

const systemTranslate = `You are a professional translator. Preserve meaning, formatting, markdown and HTML tags. Reply with JSON only.`

// translatePrompt args: source language hint, target language name, target code, text.
const translatePrompt = `Translate the text below from %s into %s (%s).

Return ONLY a JSON object:
{"sourceLang": "ISO 639-1 code of the original text", "translatedText": "the translation"}

Text:
%s`

package content

// Prompt templates. Placeholders are filled with fmt.Sprintf in the order
// they appear. The output language is fixed for the publication.
const outputLanguage = "Traditional Chinese"

const summarizeTranscriptPrompt = `Title: %s
Transcript: %s

Write a short summary article of the transcript.
The first line must be a fitting title that combines the original title and the content, written in ` + outputLanguage + `, followed by a newline.
Every line after the first is the summary. Summarize what was said; do not add detailed discussion.`

const articleFromTranscriptPrompt = `Transcript: %s

Write a detailed analysis of the transcript.
Cover the discussion in depth and keep the concrete examples that were mentioned.
Write in ` + outputLanguage + `.`

const summarizeAudioPrompt = `Write a short summary article of the audio.
The first line must be a fitting, lightly humorous title based on the content, followed by a newline.
Every line after the first is the summary. Summarize what was said; do not add detailed discussion.
Separate distinct topics into paragraphs. Write in ` + outputLanguage + `.`

const articleFromAudioPrompt = `Title: %s

Write a detailed analysis of the audio.
The first line must be a fitting, lightly humorous title based on the content and the title above, followed by a newline.
Every line after the first is the article, including detailed discussion and any concrete examples.
If the content is long, outline it first and then analyze each part.
Use HTML <p> tags for paragraphs and start each paragraph with a subheading. Write in ` + outputLanguage + `.`

const summarizeArticlePrompt = `Title: %s
Article: %s

Write a detailed analysis of the article.
The first line must be a fitting, lightly humorous title based on the content and the title above, followed by a newline.
Every line after the first is the analysis, including detailed discussion and any concrete examples.
Use HTML <p> tags for paragraphs and start each paragraph with a subheading. Write in ` + outputLanguage + `.`

const slugPrompt = `Title: %s
Content: %s

Generate a short URL-friendly slug for this article:
- only lowercase English letters, numbers, and hyphens
- at most 50 characters
- readable and descriptive of the main topic
- no spaces or other characters
Return only the slug, nothing else.

Example slugs:
ai-transformation-tech-industry
apple-vision-pro-review
microsoft-q4-earnings-report`

const humanizePrompt = `Rewrite the following article so it reads naturally, as if written by an experienced human columnist.
Keep every fact, name, link, and HTML tag. Do not add a preamble or any commentary; return only the rewritten article.

%s`

const tagsPrompt = `Title: %s
Content: %s

Available tags:
%s

Pick the tags from the list above that clearly match the article.
Respond ONLY with a JSON array of tag names, for example ["AI", "Apple"].
If none match, respond with the single word none.`

const searchQueriesPrompt = `Title: %s
Content: %s

Suggest up to %d web search queries that would give a reader useful background on this article.
Respond ONLY with a JSON array of strings.`

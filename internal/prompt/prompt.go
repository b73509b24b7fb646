// Package prompt builds the natural-language instructions sent to the
// generative API. Prompt construction is kept pure and separate from
// transport so every call site can be tested without a network.
package prompt

import (
	"fmt"
	"strings"
)

const cleanupTemplate = `You are given a technical question and a transcript of a spoken answer. The transcript may contain:

- Misheard technical terms (e.g., "mon" instead of "MERN", "stek" instead of "stack")
- Minor grammar or punctuation issues due to speech recognition
- Slight repetition or filler words

Your task:
- Fix **misheard technical terms** using the context of the question
- Fix **grammar and punctuation** to make the answer understandable
- **Do not rephrase** or improve the answer beyond fixing misrecognitions and basic grammar

Return only the cleaned-up answer. Do NOT include notes, explanations, or formatting.

Question: "%s"
Transcript: "%s"
Cleaned Answer:`

// Cleanup builds the transcript-cleanup prompt for one raw fragment.
func Cleanup(question, rawTranscript string) string {
	return fmt.Sprintf(cleanupTemplate, question, rawTranscript)
}

const feedbackTemplate = `You are an expert interviewer providing feedback for a mock interview answer. The interview section is "%s".

Question: "%s"
User Answer: "%s"
Correct Answer: "%s"

Please compare the user's answer to the correct answer, provide a rating (from 1 to 10) based on answer quality, and offer detailed feedback tailored for the "%s" section.
Return the result in JSON format with the fields "ratings" (number) and "feedback" (string).`

// Feedback builds the scoring prompt for a finalized answer.
func Feedback(question, referenceAnswer, userAnswer, section string) string {
	return fmt.Sprintf(feedbackTemplate, section, question, userAnswer, referenceAnswer, section)
}

const questionsTemplate = `As an experienced interviewer, generate a JSON array containing %d %s interview questions along with detailed reference answers based on the following job information. Each object in the array should have the fields "question" and "answer", formatted as follows:

[
  { "question": "<Question text>", "answer": "<Answer text>" },
  ...
]

Job Information:
- Job Position: %s
- Job Description: %s
- Years of Experience Required: %d
- Tech Stacks: %s

%s Please format the output strictly as an array of JSON objects without any additional labels, code blocks, or explanations. Return only the JSON array with questions and answers.`

// sectionFocus tailors the question-generation instructions per section type.
var sectionFocus = map[string]string{
	"Technical":  "The questions should assess skills in the listed tech stacks, development best practices, problem-solving, and experience handling complex requirements.",
	"HR":         "The questions should cover motivation, expectations, career goals, and fit for the role.",
	"Behavioral": "The questions should probe past situations, conflict handling, teamwork, and decision-making using situational framing.",
	"SoftSkills": "The questions should assess communication, collaboration, adaptability, and time management.",
}

// Questions builds the question-generation prompt for one interview section.
// The job fields come straight from the interview form; section is the
// section type label.
func Questions(count int, section, position, description string, experienceYears int, techStack string) string {
	focus, ok := sectionFocus[section]
	if !ok {
		focus = strings.TrimSpace(fmt.Sprintf("The questions should fit a %s interview round.", section))
	}
	return fmt.Sprintf(questionsTemplate, count, section, position, description, experienceYears, techStack, focus)
}

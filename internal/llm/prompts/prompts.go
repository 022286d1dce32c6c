// Package prompts builds the prompt text sent to the scoring model.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aditj/okai-catalyst/internal/model"
)

// BlankAnswerPrefix marks a synthesized answer for a question the
// candidate left blank. The evaluation prompt tells the model how to
// score answers carrying this marker.
const BlankAnswerPrefix = "[No response provided for:"

// CaseStudy returns the generation prompt for a new manufacturing case.
func CaseStudy() string {
	var sb strings.Builder
	sb.WriteString("Generate a realistic manufacturing case study describing a quality or production problem at a mid-sized factory.\n\n")
	sb.WriteString("REQUIREMENTS:\n")
	sb.WriteString("- Name a fictional company and describe its product line and workforce size.\n")
	sb.WriteString("- Describe one concrete operational problem: defect rates, downtime, customer returns, or throughput loss, with specific numbers and percentages.\n")
	sb.WriteString("- Mention when the problem started and at which process stages it is detected.\n")
	sb.WriteString("- Include recent process or supplier changes that may or may not be related.\n")
	sb.WriteString("- Quantify the business impact (costs, at-risk customers, throughput).\n")
	sb.WriteString("- Do NOT state or hint at the root cause; the case must be solvable through structured analysis.\n")
	sb.WriteString("- End with: \"Your task is to analyze this problem systematically through a structured approach.\"\n\n")
	sb.WriteString("Write 200-350 words of plain prose. Start with \"Case Study:\" followed by a short title. Respond with the case study text only.\n")
	return sb.String()
}

// PartEvaluation builds the scoring prompt for one text part: the case
// study, each question with the candidate's (possibly synthesized)
// answer, and the part's rubric criteria.
func PartEvaluation(caseStudy string, part model.Part, answers map[string]string) string {
	var sb strings.Builder
	sb.WriteString("You are evaluating a student's responses to a manufacturing problem-solving exercise.\n\n")
	sb.WriteString("CASE STUDY:\n")
	sb.WriteString(caseStudy)
	sb.WriteString("\n\nSTUDENT RESPONSES:\n")
	for i, q := range part.Questions {
		answer := answers[q.ID]
		if answer == "" {
			answer = "No response"
		}
		fmt.Fprintf(&sb, "\nQuestion %d: %s\nStudent Response: %s\n", i+1, q.Text, answer)
	}

	sb.WriteString("\nEVALUATION RUBRICS:\n")
	keys := part.RubricKeys()
	for _, key := range keys {
		fmt.Fprintf(&sb, "\n Rubric Text:  %s: %s", titleCase(key), part.Rubrics[key])
		fmt.Fprintf(&sb, "\n Rubric Label: %s", key)
	}

	sb.WriteString("\n\nIMPORTANT EVALUATION GUIDELINES:\n")
	sb.WriteString("- If a response starts with \"" + BlankAnswerPrefix + "\", this means the student left this question blank\n")
	sb.WriteString("- For blank responses, assign scores based on the overall quality of other responses, but generally score lower (3-5 range)\n")
	sb.WriteString("- For substantive responses, evaluate based on the rubric criteria (1-10 scale)\n")
	sb.WriteString("- Consider the overall effort and engagement across all questions\n")
	sb.WriteString("- Provide constructive feedback that addresses both answered and unanswered questions\n\n")
	sb.WriteString("Evaluate this student's performance across all rubric dimensions. Each score should be between 1-10.\n\n")
	sb.WriteString("Provide your evaluation as JSON in this exact format:\n")
	sb.WriteString("{\n    \"scores\": {\n")
	for i, key := range keys {
		fmt.Fprintf(&sb, "        %q: score", key)
		if i < len(keys)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("    },\n")
	sb.WriteString("    \"feedback\": \"Detailed constructive feedback addressing both strengths and areas for improvement, including guidance on unanswered questions\"\n}\n\n")
	sb.WriteString("Respond only with valid JSON.\n")
	return sb.String()
}

// AudioEvaluation builds the prompt for the recorded verbal explanation.
// The attachment travels separately; the prompt asks for a transcription
// plus scores on the four fixed communication criteria.
func AudioEvaluation(caseStudy string, part model.Part) string {
	var sb strings.Builder
	sb.WriteString("You are evaluating a 2-minute verbal explanation from a candidate solving a manufacturing problem.\n\n")
	sb.WriteString("ORIGINAL CASE STUDY:\n")
	sb.WriteString(caseStudy)
	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("1. First, provide a transcription of the audio\n")
	sb.WriteString("2. Then evaluate the candidate's verbal explanation based on the criteria below\n\n")
	sb.WriteString("EVALUATION CRITERIA (score 1-10 for each):\n")
	for i, key := range part.RubricKeys() {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, key, part.Rubrics[key])
	}
	sb.WriteString("\nEVALUATION FOCUS:\n")
	sb.WriteString("- Assess the logical flow and structure of their explanation\n")
	sb.WriteString("- Evaluate their ability to summarize key insights from their analysis\n")
	sb.WriteString("- Consider their communication style and professionalism\n")
	sb.WriteString("- Judge their depth of understanding of manufacturing concepts\n")
	sb.WriteString("- Note any specific examples or frameworks they reference\n\n")
	sb.WriteString("Provide your evaluation in this exact JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"transcription\": \"Full transcription of what the candidate said\",\n")
	sb.WriteString("    \"scores\": {\n")
	keys := part.RubricKeys()
	for i, key := range keys {
		fmt.Fprintf(&sb, "        %q: score", key)
		if i < len(keys)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("    },\n")
	sb.WriteString("    \"feedback\": \"Detailed feedback about their verbal presentation, communication style, synthesis ability, and demonstrated understanding. Include specific observations from their transcribed content.\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Respond only with valid JSON.\n")
	return sb.String()
}

// FinalEvaluation builds the holistic cross-part prompt: the case study,
// every answer across all parts (including the audio transcription when
// present), and the per-part evaluation summaries.
func FinalEvaluation(caseStudy string, totalQuestions int, overallAverage float64, responses string, summaries []model.PartSummary) string {
	summaryJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		summaryJSON = []byte("[]")
	}

	var sb strings.Builder
	sb.WriteString("You are a senior manufacturing consultant providing a comprehensive evaluation of problem-solving capabilities.\n\n")
	sb.WriteString("EVALUATION SUMMARY:\n")
	fmt.Fprintf(&sb, "- Total Questions Answered: %d (including verbal explanation)\n", totalQuestions)
	fmt.Fprintf(&sb, "- Overall Average Score: %.1f/10\n", overallAverage)
	sb.WriteString("- All Parts Completed Successfully (including 2-minute verbal explanation)\n\n")
	sb.WriteString("ORIGINAL CASE STUDY:\n")
	sb.WriteString(caseStudy)
	sb.WriteString("\n\nCOMPLETE STUDENT RESPONSES:\n")
	sb.WriteString(responses)
	sb.WriteString("\nDETAILED PART EVALUATIONS:\n")
	sb.Write(summaryJSON)
	sb.WriteString("\n\nCOMPREHENSIVE FINAL EVALUATION REQUIRED:\n\n")
	sb.WriteString("1. Overall Performance Scores (1-10):\n")
	sb.WriteString("   - analytical_thinking: Data gathering, systematic analysis, structured approaches\n")
	sb.WriteString("   - problem_solving: Root cause identification, solution development, creativity\n")
	sb.WriteString("   - systematic_approach: Use of frameworks, methodical thinking, logical flow\n")
	sb.WriteString("   - practical_application: Real-world feasibility, manufacturing knowledge, implementation focus\n")
	sb.WriteString("   - communication_skills: Verbal explanation clarity, synthesis ability, professional presentation\n\n")
	sb.WriteString("2. Performance Rating based on overall average:\n")
	sb.WriteString("   - \"Excellent\" (8.0+): Exceptional manufacturing problem-solving skills with strong communication\n")
	sb.WriteString("   - \"Good\" (6.5-7.9): Strong competencies with minor gaps\n")
	sb.WriteString("   - \"Satisfactory\" (5.0-6.4): Adequate skills, needs development\n")
	sb.WriteString("   - \"Needs Improvement\" (<5.0): Significant skills gaps\n\n")
	sb.WriteString("3. Detailed Feedback (4-5 sentences):\n")
	sb.WriteString("   - Specific strengths demonstrated across all parts including verbal communication\n")
	sb.WriteString("   - Key areas for improvement with actionable recommendations\n")
	sb.WriteString("   - Overall assessment of manufacturing problem-solving maturity\n")
	sb.WriteString("   - Suggestions for continued development\n\n")
	sb.WriteString("Note: After this evaluation, the system will automatically map any identified weaknesses to specific quality management tools (QFD, DFMEA, PFMEA, 7QC Tools, Why-Why Analysis, 5S) that can help address those gaps.\n\n")
	sb.WriteString("Provide realistic, constructive evaluation that accurately reflects demonstrated capabilities including communication skills.\n\n")
	sb.WriteString("Format as JSON:\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"overallScores\": {\n")
	sb.WriteString("        \"analytical_thinking\": score,\n")
	sb.WriteString("        \"problem_solving\": score,\n")
	sb.WriteString("        \"systematic_approach\": score,\n")
	sb.WriteString("        \"practical_application\": score,\n")
	sb.WriteString("        \"communication_skills\": score\n")
	sb.WriteString("    },\n")
	sb.WriteString("    \"detailedFeedback\": \"comprehensive feedback paragraph\",\n")
	sb.WriteString("    \"overallPerformance\": \"performance rating\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Respond only with valid JSON.\n")
	return sb.String()
}

// titleCase renders a rubric key like "data_focus" as "Data Focus" for
// the human-readable rubric line.
func titleCase(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

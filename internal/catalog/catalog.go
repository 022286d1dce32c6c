// Package catalog holds the static assessment structure: the ordered
// evaluation parts, their questions, and their rubric criteria.
package catalog

import "github.com/aditj/okai-catalyst/internal/model"

// parts is the canonical five-part assessment. IDs are contiguous 1..N;
// part 5 is answered with a recorded audio explanation instead of text.
var parts = []model.Part{
	{
		ID:          1,
		Title:       "Problem Identification & Data Gathering",
		Description: "Identify what information you need to understand the problem better and plan your investigation approach.",
		Questions: []model.Question{
			{
				ID:   "q1_data",
				Text: "What specific quantitative data would you collect to better understand this manufacturing problem? List 4-5 key metrics and explain why each is important.",
				Type: model.QuestionText,
			},
			{
				ID:   "q1_stakeholders",
				Text: "Who are the key people you would interview to gather information about this issue? For each person/role, specify what unique insights they could provide.",
				Type: model.QuestionText,
			},
			{
				ID:   "q1_observations",
				Text: "What direct observations would you make on the production floor? Describe your observation plan including timing, duration, and specific things to look for.",
				Type: model.QuestionText,
			},
		},
		Rubrics: map[string]string{
			"data_focus":                 "How well did they identify relevant quantitative metrics and explain their importance?",
			"stakeholder_identification": "Did they identify appropriate people with clear rationale for what insights each could provide?",
			"observation_skills":         "How systematic and comprehensive is their observation plan?",
		},
		PassingScore: 5.0,
	},
	{
		ID:          2,
		Title:       "Root Cause Analysis",
		Description: "Based on your data gathering approach, systematically identify and analyze potential root causes.",
		Questions: []model.Question{
			{
				ID:   "q2_causes",
				Text: "Using a structured approach (like the 5M framework: Man, Machine, Material, Method, Environment), list 4-6 potential root causes for this problem. For each cause, explain your reasoning.",
				Type: model.QuestionText,
			},
			{
				ID:   "q2_method",
				Text: "What structured root cause analysis method would you use (e.g., 5 Whys, Fishbone Diagram, Fault Tree Analysis)? Explain your choice and how you would apply it to this specific problem.",
				Type: model.QuestionText,
			},
			{
				ID:   "q2_validation",
				Text: "How would you validate which root cause is the actual cause? Describe your testing/validation approach and what evidence you would look for.",
				Type: model.QuestionText,
			},
		},
		Rubrics: map[string]string{
			"systematic_thinking": "Did they use systematic frameworks and demonstrate structured thinking?",
			"methodology":         "Did they choose appropriate analysis methods and explain their reasoning?",
			"validation_approach": "How well did they plan to test and validate their hypotheses?",
		},
		PassingScore: 5.0,
	},
	{
		ID:          3,
		Title:       "Solution Development",
		Description: "Develop practical, implementable solutions that directly address the root causes you identified.",
		Questions: []model.Question{
			{
				ID:   "q3_solutions",
				Text: "Propose 3-4 specific solutions that address the root causes you identified. For each solution, explain how it directly tackles the root cause and estimate the effort/cost level (Low/Medium/High).",
				Type: model.QuestionText,
			},
			{
				ID:   "q3_implementation",
				Text: "For your highest-priority solution, create a detailed implementation plan including: key steps, timeline, required resources, responsible parties, and success criteria.",
				Type: model.QuestionText,
			},
			{
				ID:   "q3_risks",
				Text: "What are the potential risks, challenges, or unintended consequences of your solution? For each risk, propose a mitigation strategy.",
				Type: model.QuestionText,
			},
		},
		Rubrics: map[string]string{
			"solution_relevance": "How directly and effectively do the solutions address the identified root causes?",
			"practicality":       "How realistic, detailed, and implementable are the solutions and plans?",
			"risk_awareness":     "Did they identify realistic risks and provide thoughtful mitigation strategies?",
		},
		PassingScore: 5.0,
	},
	{
		ID:          4,
		Title:       "Implementation & Monitoring",
		Description: "Plan how to implement your solution effectively and ensure sustainable improvements.",
		Questions: []model.Question{
			{
				ID:   "q4_metrics",
				Text: "What specific KPIs and metrics would you track to measure if your solution is working? Include leading indicators (early signals) and lagging indicators (final results).",
				Type: model.QuestionText,
			},
			{
				ID:   "q4_timeline",
				Text: "Create a realistic timeline showing: implementation phases, when you expect to see initial improvements, when to measure full impact, and review checkpoints. Justify your timeframes.",
				Type: model.QuestionText,
			},
			{
				ID:   "q4_sustainability",
				Text: "How would you ensure the solution is sustained long-term? Address: training needs, process standardization, accountability measures, and continuous improvement mechanisms.",
				Type: model.QuestionText,
			},
		},
		Rubrics: map[string]string{
			"measurement_focus": "Did they identify appropriate leading and lagging indicators for success?",
			"realistic_timeline": "Is their timeline realistic with proper justification for timeframes?",
			"sustainability":    "How well did they address long-term sustainability and continuous improvement?",
		},
		PassingScore: 5.0,
	},
	{
		ID:          5,
		Title:       "Verbal Explanation & Approach Summary",
		Description: "Record a 2-minute verbal explanation of your overall approach to solving this manufacturing problem.",
		Questions: []model.Question{
			{
				ID:           "q5_verbal",
				Text:         "Record a 2-minute verbal explanation covering: (1) Your overall problem-solving approach, (2) Key insights you discovered, (3) How you prioritized solutions, and (4) What you learned from this analysis. Click the record button and speak clearly.",
				Type:         model.QuestionAudio,
				Duration:     120,
				Instructions: "Click 'Start Recording' and speak for up to 2 minutes. The recording will automatically stop after 2 minutes.",
			},
		},
		Rubrics: map[string]string{
			"communication_clarity":     "How clearly and effectively did they communicate their approach and insights?",
			"synthesis_ability":         "How well did they synthesize and connect insights across all parts of the analysis?",
			"professional_presentation": "Did they demonstrate professional communication skills and confidence?",
			"depth_of_understanding":    "How well did they demonstrate deep understanding of manufacturing problem-solving?",
		},
		PassingScore: 5.0,
	},
}

// Parts returns the full ordered part list.
func Parts() []model.Part {
	return parts
}

// ByID returns the part with the given id.
func ByID(id int) (model.Part, bool) {
	for _, p := range parts {
		if p.ID == id {
			return p, true
		}
	}
	return model.Part{}, false
}

// Count returns the number of parts.
func Count() int {
	return len(parts)
}

// TotalQuestions returns the number of questions across all parts.
func TotalQuestions() int {
	n := 0
	for _, p := range parts {
		n += len(p.Questions)
	}
	return n
}

// CurrentPart returns the lowest part id not yet completed, or Count()
// when every part is done.
func CurrentPart(completed []int) int {
	done := make(map[int]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	for _, p := range parts {
		if !done[p.ID] {
			return p.ID
		}
	}
	return Count()
}

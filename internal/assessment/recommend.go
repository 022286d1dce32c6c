package assessment

import "github.com/aditj/okai-catalyst/internal/model"

// weakThreshold: any skill or part average below this maps to tool
// recommendations.
const weakThreshold = 6.0

// Canonical tool names from the quality-management knowledge base.
const (
	toolQFD     = "QFD (Quality Function Deployment)"
	toolDFMEA   = "DFMEA (Design Failure Mode and Effect Analysis)"
	toolPFMEA   = "PFMEA (Process Failure Mode and Effect Analysis)"
	tool7QC     = "7QC Tools"
	toolFiveWhy = "Why-Why Analysis (5 Whys)"
	toolFiveS   = "5S Methodology"
)

// toolInfo describes one methodology in the knowledge base.
type toolInfo struct {
	Description string
	Addresses   string
	WhenToUse   string
}

// knowledgeBase is the fixed catalog of improvement methodologies that
// weaknesses map onto.
var knowledgeBase = map[string]toolInfo{
	toolQFD: {
		Description: "Translates customer requirements into technical specifications and helps prioritize design decisions.",
		Addresses:   "Customer requirement analysis, stakeholder management, systematic requirement prioritization",
		WhenToUse:   "When struggling with data gathering, stakeholder identification, or understanding customer needs",
	},
	toolDFMEA: {
		Description: "Systematic method for evaluating design-related failure modes and their effects before production.",
		Addresses:   "Risk assessment, systematic thinking, solution prioritization, design robustness",
		WhenToUse:   "When weak in systematic analysis, risk assessment, or solution development",
	},
	toolPFMEA: {
		Description: "Identifies and evaluates potential failure modes in manufacturing processes.",
		Addresses:   "Process analysis, implementation planning, prevention strategies, detection improvement",
		WhenToUse:   "When struggling with implementation planning, process understanding, or practical application",
	},
	tool7QC: {
		Description: "Seven fundamental quality control tools for data analysis and problem-solving.",
		Addresses:   "Data collection, systematic analysis, root cause identification, statistical thinking",
		WhenToUse:   "When needing better data analysis skills, systematic problem-solving, or measurement approaches",
	},
	toolFiveWhy: {
		Description: "Iterative questioning technique to explore cause-and-effect relationships underlying problems.",
		Addresses:   "Root cause drilling, systematic investigation, logical reasoning, deeper analysis",
		WhenToUse:   "When root cause analysis is superficial or lacks depth in investigation",
	},
	toolFiveS: {
		Description: "Workplace organization method focused on efficiency, safety, and standardization.",
		Addresses:   "Workplace organization, sustainability planning, standardization, continuous improvement",
		WhenToUse:   "When weak in sustainability planning, implementation structure, or workplace organization",
	},
}

// Recommend maps weak skill areas to improvement methodologies. Pure and
// deterministic: skill rules run in canonical skill order, then part
// rules in part order; a later rule writing the same tool overwrites the
// earlier entry. With no weakness anywhere, two general recommendations
// are returned.
func Recommend(overallScores map[string]float64, partSummaries []model.PartSummary) map[string]model.ToolRecommendation {
	recs := make(map[string]model.ToolRecommendation)

	weak := func(skill string) bool {
		score, ok := overallScores[skill]
		return ok && score < weakThreshold
	}

	if weak(model.SkillAnalyticalThinking) {
		recs[tool7QC] = model.ToolRecommendation{
			Reason:          "Your analytical thinking could be strengthened with structured data analysis tools",
			SpecificBenefit: knowledgeBase[tool7QC].Addresses,
			Priority:        "High",
		}
		recs[toolFiveWhy] = model.ToolRecommendation{
			Reason:          "Develop deeper analytical skills through systematic questioning techniques",
			SpecificBenefit: knowledgeBase[toolFiveWhy].Addresses,
			Priority:        "Medium",
		}
	}

	if weak(model.SkillProblemSolving) {
		recs[toolDFMEA] = model.ToolRecommendation{
			Reason:          "Enhance systematic problem-solving and risk assessment capabilities",
			SpecificBenefit: knowledgeBase[toolDFMEA].Addresses,
			Priority:        "High",
		}
		recs[tool7QC] = model.ToolRecommendation{
			Reason:          "Build foundational problem-solving skills with structured quality tools",
			SpecificBenefit: knowledgeBase[tool7QC].Addresses,
			Priority:        "Medium",
		}
	}

	if weak(model.SkillSystematicApproach) {
		recs[toolQFD] = model.ToolRecommendation{
			Reason:          "Learn systematic requirement analysis and stakeholder management",
			SpecificBenefit: knowledgeBase[toolQFD].Addresses,
			Priority:        "High",
		}
		recs[toolDFMEA] = model.ToolRecommendation{
			Reason:          "Develop structured risk assessment and analysis methodologies",
			SpecificBenefit: knowledgeBase[toolDFMEA].Addresses,
			Priority:        "Medium",
		}
	}

	if weak(model.SkillPracticalApp) {
		recs[toolPFMEA] = model.ToolRecommendation{
			Reason:          "Strengthen practical implementation and process analysis skills",
			SpecificBenefit: knowledgeBase[toolPFMEA].Addresses,
			Priority:        "High",
		}
		recs[toolFiveS] = model.ToolRecommendation{
			Reason:          "Learn practical workplace organization and implementation sustainability",
			SpecificBenefit: knowledgeBase[toolFiveS].Addresses,
			Priority:        "Medium",
		}
	}

	if weak(model.SkillCommunication) {
		recs[toolQFD] = model.ToolRecommendation{
			Reason:          "Improve stakeholder communication and requirement gathering skills",
			SpecificBenefit: knowledgeBase[toolQFD].Addresses,
			Priority:        "Medium",
		}
	}

	for _, part := range partSummaries {
		if part.AverageScore >= weakThreshold {
			continue
		}
		switch part.PartID {
		case 1: // Problem Identification & Data Gathering
			recs[toolQFD] = model.ToolRecommendation{
				Reason:          "Improve data gathering and stakeholder identification skills",
				SpecificBenefit: "CTQ identification, stakeholder analysis, systematic requirement gathering",
				Priority:        "High",
			}
			recs[tool7QC] = model.ToolRecommendation{
				Reason:          "Learn systematic data collection and analysis methods",
				SpecificBenefit: "Check sheets, data organization, systematic observation",
				Priority:        "Medium",
			}
		case 2: // Root Cause Analysis
			recs[toolFiveWhy] = model.ToolRecommendation{
				Reason:          "Strengthen root cause analysis depth and systematic investigation",
				SpecificBenefit: "Root cause drilling, systematic issue recognition, logical questioning",
				Priority:        "High",
			}
			recs[tool7QC] = model.ToolRecommendation{
				Reason:          "Learn fishbone diagrams and other root cause analysis tools",
				SpecificBenefit: "Fishbone analysis, Pareto analysis, systematic cause identification",
				Priority:        "Medium",
			}
		case 3: // Solution Development
			recs[toolDFMEA] = model.ToolRecommendation{
				Reason:          "Enhance solution evaluation and risk assessment skills",
				SpecificBenefit: "Risk prioritization, systematic solution evaluation, RPN calculation",
				Priority:        "High",
			}
			recs[toolPFMEA] = model.ToolRecommendation{
				Reason:          "Improve practical solution development and implementation planning",
				SpecificBenefit: "Poka Yoke implementation, practical application, error prevention",
				Priority:        "Medium",
			}
		case 4: // Implementation & Monitoring
			recs[toolFiveS] = model.ToolRecommendation{
				Reason:          "Learn sustainable implementation and workplace organization",
				SpecificBenefit: "Standardization, sustainability planning, continuous improvement",
				Priority:        "High",
			}
			recs[toolPFMEA] = model.ToolRecommendation{
				Reason:          "Develop better monitoring and detection improvement strategies",
				SpecificBenefit: "Detection improvement, process monitoring, systematic implementation",
				Priority:        "Medium",
			}
		}
	}

	if len(recs) == 0 {
		recs[tool7QC] = model.ToolRecommendation{
			Reason:          "Build foundational quality management skills with fundamental tools",
			SpecificBenefit: "Comprehensive quality analysis and problem-solving foundation",
			Priority:        "Medium",
		}
		recs[toolQFD] = model.ToolRecommendation{
			Reason:          "Enhance systematic thinking and customer-focused analysis",
			SpecificBenefit: "Stakeholder management and systematic requirement analysis",
			Priority:        "Low",
		}
	}

	return recs
}

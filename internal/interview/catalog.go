package interview

// Position is the role being interviewed for.
type Position string

const (
	PositionFrontend  Position = "frontend"
	PositionBackend   Position = "backend"
	PositionFullstack Position = "fullstack"
	PositionDevOps    Position = "devops"
	PositionQA        Position = "qa"
	PositionPM        Position = "pm"
	PositionAnalyst   Position = "analyst"
	PositionDesigner  Position = "designer"
)

var positionNames = map[Position]string{
	PositionFrontend:  "Frontend Developer",
	PositionBackend:   "Backend Developer",
	PositionFullstack: "Fullstack Developer",
	PositionDevOps:    "DevOps Engineer",
	PositionQA:        "QA Engineer",
	PositionPM:        "Project Manager",
	PositionAnalyst:   "Systems Analyst",
	PositionDesigner:  "UI/UX Designer",
}

// Level is the seniority being interviewed for.
type Level string

const (
	LevelJunior Level = "junior"
	LevelMiddle Level = "middle"
	LevelSenior Level = "senior"
	LevelLead   Level = "lead"
)

var levelNames = map[Level]string{
	LevelJunior: "Junior",
	LevelMiddle: "Middle",
	LevelSenior: "Senior",
	LevelLead:   "Lead",
}

// Category groups the question table.
type Category string

const (
	CategoryTechnical  Category = "technical"
	CategoryBehavioral Category = "behavioral"
	CategoryCompany    Category = "company"
)

// Question is one entry of the fixed question table.
type Question struct {
	Category Category
	Text     string
}

const interviewerName = "Anna Petrova"

var questions = [...]Question{
	{CategoryTechnical, "Tell me about the most complex project you have worked on. What technical difficulties came up and how did you solve them?"},
	{CategoryTechnical, "How do you approach learning new technologies? Give an example of one you picked up recently."},
	{CategoryTechnical, "Describe your debugging process. Which tools do you use?"},
	{CategoryTechnical, "How do you make sure your code is of good quality? Which practices do you follow?"},
	{CategoryTechnical, "Tell me about a time you had to optimise the performance of an application."},
	{CategoryBehavioral, "Tell me about a situation where you disagreed with a team decision. What did you do?"},
	{CategoryBehavioral, "Give an example of working under a very tight deadline. How did you cope?"},
	{CategoryBehavioral, "How do you usually react to criticism of your work?"},
	{CategoryBehavioral, "Tell me about a time you helped a colleague solve a hard problem."},
	{CategoryBehavioral, "What motivates you at work? What demotivates you?"},
	{CategoryCompany, "Why do you want to work at our company in particular?"},
	{CategoryCompany, "What do you know about our company and its products?"},
	{CategoryCompany, "What questions do you have about the company or the position?"},
	{CategoryCompany, "What are your career plans for the next two to three years?"},
}

var acknowledgements = [...]string{
	"Interesting! Could you tell me more about that?",
	"I see. Which technologies did you use on that project?",
	"Good. How did the team react to your decision?",
	"Great! What was the hardest part of that situation?",
	"Thank you for the detailed answer. That is valuable experience.",
	"I understand. What do you think could have been done differently?",
	"Interesting approach! Did you follow any particular methodology?",
	"Good. How did you measure the success of that solution?",
}

const closingText = "Thank you for your answers! Those are all the questions I had. We will get back to you in a few days. Have a nice day!"

var recommendations = []string{
	"Prepare more concrete examples from your own experience.",
	"Study the company's technology stack in more depth.",
	"Prepare questions about the team and its development process.",
	"Practise describing your achievements with numbers.",
}

// Questions returns a copy of the question table.
func Questions() []Question {
	out := make([]Question, len(questions))
	copy(out, questions[:])
	return out
}

// Positions lists the accepted positions.
func Positions() []Position {
	return []Position{
		PositionFrontend, PositionBackend, PositionFullstack, PositionDevOps,
		PositionQA, PositionPM, PositionAnalyst, PositionDesigner,
	}
}

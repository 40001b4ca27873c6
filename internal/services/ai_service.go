package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/outboundiq/personalize-backend/internal/clients/openai"
	"github.com/outboundiq/personalize-backend/internal/logger"
)

const systemPrompt = "You are a helpful assistant that analyzes website content."

// CustomTemplatePrefix marks caller-supplied prompt templates. The custom
// prompt text is used as-is with the serialized content appended.
const CustomTemplatePrefix = "custom_"

var promptTemplates = map[string]string{
	"intro": `Using the following text data from {business_name}'s website, read their copy. Check if they have any blogs, unique phrases, or unique strategies. The goal is for you to find something that would show that you've paid attention to their business in order to create a hyper-personalized opening to a cold email. Make the tone of the sentence friendly, conversational, spartan, and non-corporate. Make it a very brief compliment and only one sentence using an "I" statement, ending with an exclamation point, without using words above a high school reading level. Do not include any quotations or anything else besides the compliment whatsoever.

Use this beginning and finish the rest:
"I was checking out {business_name}'s website and..."

Some great examples would be:
"I really loved reading your blog about transparency in the industry, something that's a crucial issue I've been hearing about"
"I love that you guys are using InteroBOT to scan for competition for you clients, super smart idea!"
"I saw you guys had that accessibility webinar coming up-- thanks for covering such an important topic!"

Do not just repeat what their service does. Pinpoint something and make it personal.

Check to see if you can mention any of these in your response. Only mention it if it actually exists:
1. A recent event coming up that is showed on their website
2. A unique strategy they mention using in their business, such as a bot or framework
3. An award they have on their business
4. A case study showing off an impressive statistic.

Do not make it more than 25 words. If you are unable to find anything relevant or do not have enough information, respond with "Unable", and then why you are not able to provide an output.

Remember, do NOT include any quotation marks or anything else under ANY circumstance.

Website Content: {content}

Output:`,
	"ps": `Using the following text data from {business_name}'s website, read their copy. Check if they have any blogs, unique phrases, or unique strategies. The goal is for you to find something that would show that you've paid attention to their business in order to create a hyper-personalized opening to a cold email. Make the tone of the sentence friendly but quick. Make it a very brief compliment and only one sentence, without using words above a high school reading level. Do not include any quotations or anything else besides the compliment whatsoever.

Use this beginning and finish the rest:
"PS, Love..."

Some great examples would be:
"that you guys have that blog on accessibility-- great stuff."
"that you're using InteroBOT for your clients-- smart move."
"that case study you guys have with Microsoft."

Do not just repeat what their service does. Pinpoint something and make it personal.

Check to see if you can mention any of these in your response. Only mention it if it actually exists:
1. A recent event coming up that is showed on their website
2. A unique strategy they mention using in their business, such as a bot or framework
3. An award they have on their business
4. A case study showing off an impressive statistic.

Do not make it more than 15 words. If you are unable to find anything relevant or do not have enough information, respond with "Unable", and then why you are not able to provide an output.

Remember, do NOT include any quotation marks or anything else under ANY circumstance.

Website Content: {content}

Output:`,
	"summary": `Please give a less than 30 word summary of what this website is about.

Website Content: {content}

Output:`,
}

// BuiltinTemplates lists the template names with a fixed prompt.
func BuiltinTemplates() []string {
	return []string{"intro", "ps", "summary"}
}

// AIService turns cleaned website content into a generated snippet for a
// named template. Stateless aside from the prompt table; retry policy lives
// in the orchestrator.
type AIService interface {
	AnalyzeWebsite(ctx context.Context, crawlData []string, templateName string, customPrompt string, businessName string) (string, error)
}

type aiService struct {
	log     *logger.Logger
	client  openai.Client
	limiter *RateLimiter
}

func NewAIService(client openai.Client, limiter *RateLimiter, baseLog *logger.Logger) AIService {
	return &aiService{
		log:     baseLog.With("service", "AIService"),
		client:  client,
		limiter: limiter,
	}
}

// BuildPrompt resolves the prompt for a template. Unknown template names
// without a custom prompt are a GenError.
func BuildPrompt(crawlData []string, templateName string, customPrompt string, businessName string) (string, error) {
	serialized, err := json.Marshal(crawlData)
	if err != nil {
		return "", &GenError{Template: templateName, Message: err.Error()}
	}

	if strings.HasPrefix(templateName, CustomTemplatePrefix) {
		if customPrompt == "" {
			return "", &GenError{Template: templateName, Message: "custom template requires a prompt"}
		}
		return fmt.Sprintf("%s\n\nWebsite content: %s", customPrompt, string(serialized)), nil
	}

	template, ok := promptTemplates[templateName]
	if !ok {
		return "", &GenError{Template: templateName, Message: fmt.Sprintf("unknown prompt type: %s", templateName)}
	}
	prompt := strings.Replace(template, "{content}", string(serialized), 1)
	prompt = strings.ReplaceAll(prompt, "{business_name}", businessName)
	return prompt, nil
}

func (s *aiService) AnalyzeWebsite(ctx context.Context, crawlData []string, templateName string, customPrompt string, businessName string) (string, error) {
	prompt, err := BuildPrompt(crawlData, templateName, customPrompt, businessName)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	s.log.Debug("Requesting AI analysis", "template", templateName)
	text, err := s.client.ChatCompletion(ctx, systemPrompt, prompt)
	if err != nil {
		return "", &GenError{Template: templateName, Message: err.Error()}
	}
	return text, nil
}

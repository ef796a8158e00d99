package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/moodflix/core"
)

// StoryWords 故事概要的目标长度（词）。
const StoryWords = 50

// OllamaStoryWriter 用 LLM 把场景与心情描述写成一段电影式的故事概要。
type OllamaStoryWriter struct {
	Client *OllamaClient
}

func NewOllamaStoryWriter(client *OllamaClient) *OllamaStoryWriter {
	return &OllamaStoryWriter{Client: client}
}

func (w *OllamaStoryWriter) WriteStory(ctx context.Context, scene, feelings string) (string, error) {
	if strings.TrimSpace(scene) == "" && strings.TrimSpace(feelings) == "" {
		return "", core.NewDomainError(core.ModuleModel, core.ErrorCodeInvalidInput, "story: scene and feelings are both empty")
	}
	answer, err := w.Client.Generate(ctx, StoryPrompt(scene, feelings))
	if err != nil {
		return "", err
	}
	story := strings.TrimSpace(answer)
	if story == "" {
		return "", core.NewDomainError(core.ModuleModel, core.ErrorCodeUnavailable, "story: empty answer")
	}
	return story, nil
}

// StoryPrompt 生成故事概要的提示词。
func StoryPrompt(scene, feelings string) string {
	return fmt.Sprintf(`Write a %d-word overview of a movie story this user would enjoy right now.
Scene they have in mind: %s
How they feel: %s
Reply with the overview only.`, StoryWords, strings.TrimSpace(scene), strings.TrimSpace(feelings))
}

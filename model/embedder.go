package model

import "context"

// OllamaEmbedder 通过 Ollama 计算句向量，目录里的 overview_embedding 需由同一个模型生成。
type OllamaEmbedder struct {
	Client *OllamaClient
}

func NewOllamaEmbedder(client *OllamaClient) *OllamaEmbedder {
	return &OllamaEmbedder{Client: client}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.Client.Embed(ctx, text)
}

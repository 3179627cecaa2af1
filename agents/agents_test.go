package agents

import (
	"context"

	"github.com/brunobiangulo/labcheck/llm"
)

// scriptedProvider implements llm.Provider and llm.VisionProvider with
// canned responses, recording the last request of each kind.
type scriptedProvider struct {
	chatResponse   string
	chatErr        error
	visionResponse string
	visionErr      error

	chatCalls   int
	visionCalls int
	lastChat    llm.ChatRequest
	lastVision  llm.VisionChatRequest
}

func (s *scriptedProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.chatCalls++
	s.lastChat = req
	if s.chatErr != nil {
		return nil, s.chatErr
	}
	return &llm.ChatResponse{Content: s.chatResponse, TotalTokens: 42}, nil
}

func (s *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (s *scriptedProvider) ChatWithImages(_ context.Context, req llm.VisionChatRequest) (*llm.ChatResponse, error) {
	s.visionCalls++
	s.lastVision = req
	if s.visionErr != nil {
		return nil, s.visionErr
	}
	return &llm.ChatResponse{Content: s.visionResponse, TotalTokens: 42}, nil
}

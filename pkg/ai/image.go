package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

// ArkImage generates images through the Ark content-generation API.
type ArkImage struct {
	client  *arkruntime.Client
	model   string
	timeout time.Duration
	httpc   *http.Client
}

func NewArkImage(apiKey, modelName string, timeout time.Duration) *ArkImage {
	return &ArkImage{
		client:  arkruntime.NewClientWithApiKey(apiKey),
		model:   modelName,
		timeout: timeout,
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (g *ArkImage) Generate(ctx context.Context, prompt, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := model.GenerateImagesRequest{
		Model:          g.model,
		Prompt:         prompt,
		Size:           volcengine.String("1K"),
		ResponseFormat: volcengine.String(model.GenerateImagesResponseFormatURL),
		Watermark:      volcengine.Bool(false),
	}

	resp, err := g.client.GenerateImages(ctx, req)
	if err != nil {
		return &ProviderError{Capability: "image", Backend: "ark", Err: err}
	}
	if resp.Error != nil {
		return &ProviderError{Capability: "image", Backend: "ark",
			Err: fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)}
	}
	if len(resp.Data) == 0 || resp.Data[0].Url == nil || *resp.Data[0].Url == "" {
		return &ProviderError{Capability: "image", Backend: "ark",
			Err: errors.New("empty image result")}
	}

	if err := g.download(ctx, *resp.Data[0].Url, outputPath); err != nil {
		return &ProviderError{Capability: "image", Backend: "ark", Err: err}
	}
	return nil
}

// download fetches the generated image URL to outputPath.
func (g *ArkImage) download(ctx context.Context, url, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := g.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// SDAPIImage generates images through a Stable Diffusion web API
// (Automatic1111-compatible txt2img endpoint).
type SDAPIImage struct {
	baseURL string
	httpc   *http.Client
}

func NewSDAPIImage(baseURL string, timeout time.Duration) *SDAPIImage {
	return &SDAPIImage{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type sdAPIRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Steps          int    `json:"steps"`
	SamplerName    string `json:"sampler_name"`
	CfgScale       int    `json:"cfg_scale"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Seed           int    `json:"seed"`
	SaveImages     bool   `json:"save_images"`
}

type sdAPIResponse struct {
	Images []string `json:"images"`
}

func (g *SDAPIImage) Generate(ctx context.Context, prompt, outputPath string) error {
	payload := sdAPIRequest{
		Prompt:         prompt,
		NegativePrompt: "blurry, bad quality, distorted, ugly, watermark, text, signature",
		Steps:          25,
		SamplerName:    "DPM++ 2M Karras",
		CfgScale:       7,
		Width:          1080,
		Height:         1920,
		Seed:           -1,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Capability: "image", Backend: "sdapi",
			Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out sdAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}
	if len(out.Images) == 0 {
		return &ProviderError{Capability: "image", Backend: "sdapi",
			Err: errors.New("empty image result")}
	}

	raw, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}
	if err := os.WriteFile(outputPath, raw, 0644); err != nil {
		return &ProviderError{Capability: "image", Backend: "sdapi", Err: err}
	}
	return nil
}

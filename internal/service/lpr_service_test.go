package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
)

type fakeDetector struct {
	detections []types.TextDetection
	input      *rekognition.DetectTextInput
}

func (f *fakeDetector) DetectText(_ context.Context, in *rekognition.DetectTextInput, _ ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error) {
	f.input = in
	return &rekognition.DetectTextOutput{TextDetections: f.detections}, nil
}

func detection(text string, confidence float32) types.TextDetection {
	return types.TextDetection{DetectedText: aws.String(text), Confidence: aws.Float32(confidence), Type: types.TextTypesLine}
}

func TestRecognizePicksMostConfidentPlate(t *testing.T) {
	d := &fakeDetector{detections: []types.TextDetection{
		detection("WELCOME", 99),
		detection("NDA 1234", 91.5),
		detection("ABC-123", 97),
	}}
	svc := NewLPRService(d, logger.NewNop())

	img := base64.StdEncoding.EncodeToString([]byte("jpeg"))
	resp, err := svc.Recognize(context.Background(), domain.LPRRequestDTO{ImageBase64: img})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.PlateNumber)
	assert.Equal(t, float32(97), resp.Confidence)
	assert.Equal(t, []byte("jpeg"), d.input.Image.Bytes)
}

func TestRecognizeErrors(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("jpeg"))

	_, err := NewLPRService(nil, logger.NewNop()).Recognize(context.Background(), domain.LPRRequestDTO{ImageBase64: img})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	svc := NewLPRService(&fakeDetector{detections: []types.TextDetection{detection("EXIT", 99)}}, logger.NewNop())
	_, err = svc.Recognize(context.Background(), domain.LPRRequestDTO{ImageBase64: "%%%"})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = svc.Recognize(context.Background(), domain.LPRRequestDTO{ImageBase64: img})
	assert.True(t, apperr.IsNotFound(err))
}

package service

import (
	"context"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/vinieshwan/parking-system/internal/apperr"
	"github.com/vinieshwan/parking-system/internal/domain"
	"github.com/vinieshwan/parking-system/internal/logger"
)

// TextDetector is the part of the Rekognition client used for plate reading.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Plates are letters followed by digits, e.g. ABC1234 or NDA 123.
var plateRegex = regexp.MustCompile(`^[A-Z]{2,3}[0-9]{3,5}$`)

type LPRService struct {
	detector TextDetector
	log      logger.Logger
}

// NewLPRService returns a service that reports plate recognition as
// unavailable when detector is nil.
func NewLPRService(detector TextDetector, log logger.Logger) *LPRService {
	return &LPRService{detector: detector, log: log.Named("lpr")}
}

// Recognize reads the most confident plate number from a base64 camera frame.
func (s *LPRService) Recognize(ctx context.Context, dto domain.LPRRequestDTO) (*domain.LPRResponseDTO, error) {
	if s.detector == nil {
		return nil, apperr.New(apperr.KindInternal, "plate recognition is not enabled")
	}
	image, err := base64.StdEncoding.DecodeString(dto.ImageBase64)
	if err != nil || len(image) == 0 {
		return nil, apperr.InvalidArgument("image must be base64 encoded")
	}

	out, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var (
		best       string
		confidence float32
		seen       []string
	)
	for _, d := range out.TextDetections {
		if d.DetectedText == nil || d.Confidence == nil {
			continue
		}
		if d.Type != types.TextTypesLine && d.Type != types.TextTypesWord {
			continue
		}
		txt := strings.ToUpper(strings.NewReplacer(" ", "", "-", "", ".", "").Replace(*d.DetectedText))
		seen = append(seen, txt)
		if plateRegex.MatchString(txt) && *d.Confidence > confidence {
			best, confidence = txt, *d.Confidence
		}
	}

	if best == "" {
		s.log.Info("no plate number recognized", "detections", strings.Join(seen, ","))
		return nil, apperr.NotFound("no plate number recognized")
	}
	s.log.Debug("plate number recognized", "plateNumber", best, "confidence", confidence)
	return &domain.LPRResponseDTO{PlateNumber: strings.ToLower(best), Confidence: confidence}, nil
}

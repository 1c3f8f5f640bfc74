package evaluation

import (
	"math"

	"github.com/yourusername/assessment-api/internal/domain/entity"
)

// Фиксированные веса агрегации подоценок
var (
	speakingWeights = map[string]float64{
		"correctness": 0.30,
		"grammar":     0.10,
		"fluency":     0.50,
		"thinking":    0.10,
	}
	writingWeights = map[string]float64{
		"correctness":  0.40,
		"grammar":      0.30,
		"thinking":     0.20,
		"completeness": 0.10,
	}
)

// NeutralScore — нейтральное значение по умолчанию для отсутствующей
// или некорректной подоценки AI-рубрики
const NeutralScore = 50.0

// Subscores — полный набор подоценок одного ответа
type Subscores struct {
	Correctness  float64
	Grammar      float64
	Fluency      float64
	Completeness float64
	Thinking     float64
}

// Overall вычисляет взвешенную итоговую оценку по типу вопроса,
// округленную до 2 знаков
func (s Subscores) Overall(questionType string) float64 {
	var total float64
	if questionType == entity.QuestionTypeSpeaking {
		total = s.Correctness*speakingWeights["correctness"] +
			s.Grammar*speakingWeights["grammar"] +
			s.Fluency*speakingWeights["fluency"] +
			s.Thinking*speakingWeights["thinking"]
	} else {
		total = s.Correctness*writingWeights["correctness"] +
			s.Grammar*writingWeights["grammar"] +
			s.Thinking*writingWeights["thinking"] +
			s.Completeness*writingWeights["completeness"]
	}
	return round2(total)
}

// Clamp ограничивает значение диапазоном [0,100].
// Каждое числовое поле вендора валидируется на входе: отсутствие
// трактуется как нейтральный дефолт, а не как null в арифметике.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// round2 округляет до 2 знаков после запятой
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MapCEFR отображает итоговую оценку в уровень CEFR.
// Полосы закрытые и непересекающиеся:
// [90,100]→C2, [80,90)→C1, [70,80)→B2, [60,70)→B1, [50,60)→A2, [0,50)→A1.
func MapCEFR(overall float64) string {
	switch {
	case overall >= 90:
		return entity.CEFRLevelC2
	case overall >= 80:
		return entity.CEFRLevelC1
	case overall >= 70:
		return entity.CEFRLevelB2
	case overall >= 60:
		return entity.CEFRLevelB1
	case overall >= 50:
		return entity.CEFRLevelA2
	default:
		return entity.CEFRLevelA1
	}
}

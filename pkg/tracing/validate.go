package tracing

import "fmt"

type Layer string
type SubLayer string

const (
	LayerApplication    Layer = "application"
	LayerPresentation   Layer = "presentation"
	LayerInfrastructure Layer = "infrastructure"
	LayerIntegration    Layer = "integration"
)

const (
	SubLayerUseCase   SubLayer = "usecase"
	SubLayerService   SubLayer = "service"
	SubLayerValidator SubLayer = "validator"

	SubLayerBroker SubLayer = "broker"
	SubLayerAuth   SubLayer = "auth"

	SubLayerHTTP       SubLayer = "http"
	SubLayerThirdParty SubLayer = "thirdparty"
)

// Допустимые комбинации Layer -> SubLayer
var validSubLayers = map[Layer][]SubLayer{
	LayerApplication:    {SubLayerUseCase, SubLayerService, SubLayerValidator},
	LayerPresentation:   {SubLayerHTTP},
	LayerInfrastructure: {SubLayerBroker, SubLayerAuth},
	LayerIntegration:    {SubLayerHTTP, SubLayerThirdParty},
}

// validateLayerSubLayer проверяет, что подслой относится к слою
func validateLayerSubLayer(layer Layer, subLayer SubLayer) error {
	for _, valid := range validSubLayers[layer] {
		if valid == subLayer {
			return nil
		}
	}
	if _, ok := validSubLayers[layer]; !ok {
		return fmt.Errorf("unknown layer: %s", layer)
	}
	return fmt.Errorf("invalid sublayer %s for layer %s", subLayer, layer)
}

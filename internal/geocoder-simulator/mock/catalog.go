package mock

import (
	"strconv"
	"strings"
)

// Place é uma entrada do catálogo fixo de endereços simulados.
type Place struct {
	Name    string
	Aliases []string
	Lat     float64
	Lon     float64
	Display string
}

// Catálogo de bairros e quadras conhecidas (Đà Nẵng, Hà Nội, TP. HCM)
var catalog = []Place{
	{Name: "hải châu", Aliases: []string{"hai chau"}, Lat: 16.0544, Lon: 108.2022, Display: "Hải Châu, Đà Nẵng, Việt Nam"},
	{Name: "sơn trà", Aliases: []string{"son tra"}, Lat: 16.1067, Lon: 108.2525, Display: "Sơn Trà, Đà Nẵng, Việt Nam"},
	{Name: "ngũ hành sơn", Aliases: []string{"ngu hanh son"}, Lat: 16.0004, Lon: 108.2497, Display: "Ngũ Hành Sơn, Đà Nẵng, Việt Nam"},
	{Name: "thanh khê", Aliases: []string{"thanh khe"}, Lat: 16.0640, Lon: 108.1860, Display: "Thanh Khê, Đà Nẵng, Việt Nam"},
	{Name: "liên chiểu", Aliases: []string{"lien chieu"}, Lat: 16.0718, Lon: 108.1500, Display: "Liên Chiểu, Đà Nẵng, Việt Nam"},
	{Name: "cẩm lệ", Aliases: []string{"cam le"}, Lat: 16.0153, Lon: 108.1933, Display: "Cẩm Lệ, Đà Nẵng, Việt Nam"},
	{Name: "đà nẵng", Aliases: []string{"da nang"}, Lat: 16.0471, Lon: 108.2068, Display: "Đà Nẵng, Việt Nam"},
	{Name: "hoàn kiếm", Aliases: []string{"hoan kiem"}, Lat: 21.0288, Lon: 105.8525, Display: "Hoàn Kiếm, Hà Nội, Việt Nam"},
	{Name: "hà nội", Aliases: []string{"ha noi", "hanoi"}, Lat: 21.0285, Lon: 105.8542, Display: "Hà Nội, Việt Nam"},
	{Name: "quận 1", Aliases: []string{"quan 1", "district 1"}, Lat: 10.7756, Lon: 106.7004, Display: "Quận 1, Thành phố Hồ Chí Minh, Việt Nam"},
	{Name: "hồ chí minh", Aliases: []string{"ho chi minh", "saigon", "sài gòn"}, Lat: 10.8231, Lon: 106.6297, Display: "Thành phố Hồ Chí Minh, Việt Nam"},
}

// match devolve a primeira entrada cujo nome ou alias aparece na consulta.
// Entradas mais específicas vêm antes das cidades no catálogo.
func match(q string) (Place, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return Place{}, false
	}
	for _, p := range catalog {
		if strings.Contains(q, p.Name) {
			return p, true
		}
		for _, a := range p.Aliases {
			if strings.Contains(q, a) {
				return p, true
			}
		}
	}
	return Place{}, false
}

// nearest devolve a entrada mais próxima pela distância euclidiana em graus.
func nearest(lat, lon float64) Place {
	best, bestD := catalog[0], -1.0
	for _, p := range catalog {
		d := (p.Lat-lat)*(p.Lat-lat) + (p.Lon-lon)*(p.Lon-lon)
		if bestD < 0 || d < bestD {
			best, bestD = p, d
		}
	}
	return best
}

func coord(v float64) string { return strconv.FormatFloat(v, 'f', 7, 64) }

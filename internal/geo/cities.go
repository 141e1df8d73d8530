package geo

import (
	"strings"

	"github.com/example/guilda/internal/textfold"
)

// City is a selectable profile location. Smaller cities without a surveyed
// coordinate share their state capital's.
type City struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Coord Coord  `json:"coord"`
}

// Label renders the city the way profiles store it: "Campinas, SP".
func (c City) Label() string { return c.Name + ", " + c.State }

// MaxCitySuggestions caps SuggestCities results.
const MaxCitySuggestions = 8

var cities = []City{
	{"São Paulo", "SP", Coord{Lat: -23.5505, Lon: -46.6333}},
	{"Campinas", "SP", Coord{Lat: -22.9099, Lon: -47.0626}},
	{"Santos", "SP", Coord{Lat: -23.9608, Lon: -46.3336}},
	{"São Bernardo do Campo", "SP", Coord{Lat: -23.6914, Lon: -46.5646}},
	{"Santo André", "SP", Coord{Lat: -23.6639, Lon: -46.5383}},
	{"Osasco", "SP", Coord{Lat: -23.5329, Lon: -46.7917}},
	{"Sorocaba", "SP", Coord{Lat: -23.5015, Lon: -47.4526}},
	{"Ribeirão Preto", "SP", Coord{Lat: -21.1775, Lon: -47.8103}},
	{"São José dos Campos", "SP", Coord{Lat: -23.2237, Lon: -45.9009}},
	{"Guarulhos", "SP", Coord{Lat: -23.4543, Lon: -46.5337}},
	{"Mauá", "SP", Coord{Lat: -23.6677, Lon: -46.4613}},
	{"Diadema", "SP", Coord{Lat: -23.6813, Lon: -46.6205}},
	{"Carapicuíba", "SP", Coord{Lat: -23.5235, Lon: -46.8407}},
	{"Piracicaba", "SP", Coord{Lat: -22.7253, Lon: -47.6492}},
	{"Bauru", "SP", Coord{Lat: -22.3246, Lon: -49.0871}},
	{"Jundiaí", "SP", Coord{Lat: -23.1857, Lon: -46.8978}},
	{"Rio de Janeiro", "RJ", Coord{Lat: -22.9068, Lon: -43.1729}},
	{"Niterói", "RJ", Coord{Lat: -22.8832, Lon: -43.1034}},
	{"Duque de Caxias", "RJ", Coord{Lat: -22.7856, Lon: -43.3117}},
	{"Nova Iguaçu", "RJ", Coord{Lat: -22.7556, Lon: -43.4603}},
	{"São Gonçalo", "RJ", Coord{Lat: -22.8268, Lon: -43.0634}},
	{"Campos dos Goytacazes", "RJ", Coord{Lat: -21.7523, Lon: -41.3304}},
	{"Petrópolis", "RJ", Coord{Lat: -22.5112, Lon: -43.1779}},
	{"Volta Redonda", "RJ", Coord{Lat: -22.5202, Lon: -44.0996}},
	{"Magé", "RJ", Coord{Lat: -22.6556, Lon: -43.0406}},
	{"Belford Roxo", "RJ", Coord{Lat: -22.7640, Lon: -43.3995}},
	{"Nova Friburgo", "RJ", Coord{Lat: -22.2819, Lon: -42.5311}},
	{"Macaé", "RJ", Coord{Lat: -22.3708, Lon: -41.7869}},
	{"Belo Horizonte", "MG", Coord{Lat: -19.9167, Lon: -43.9345}},
	{"Uberlândia", "MG", Coord{Lat: -18.9186, Lon: -48.2772}},
	{"Contagem", "MG", Coord{Lat: -19.9320, Lon: -44.0539}},
	{"Juiz de Fora", "MG", Coord{Lat: -21.7642, Lon: -43.3496}},
	{"Betim", "MG", Coord{Lat: -19.9678, Lon: -44.1983}},
	{"Montes Claros", "MG", Coord{Lat: -16.7350, Lon: -43.8617}},
	{"Ribeirão das Neves", "MG", Coord{Lat: -19.7669, Lon: -44.0869}},
	{"Uberaba", "MG", Coord{Lat: -19.7472, Lon: -47.9381}},
	{"Governador Valadares", "MG", Coord{Lat: -18.8545, Lon: -41.9555}},
	{"Ipatinga", "MG", Coord{Lat: -19.4703, Lon: -42.5476}},
	{"Santa Luzia", "MG", Coord{Lat: -19.7697, Lon: -43.8514}},
	{"Sete Lagoas", "MG", Coord{Lat: -19.4658, Lon: -44.2467}},
	{"Salvador", "BA", Coord{Lat: -12.9714, Lon: -38.5014}},
	{"Feira de Santana", "BA", Coord{Lat: -12.2664, Lon: -38.9663}},
	{"Vitória da Conquista", "BA", Coord{Lat: -14.8615, Lon: -40.8442}},
	{"Camaçari", "BA", Coord{Lat: -12.6996, Lon: -38.3263}},
	{"Juazeiro", "BA", Coord{Lat: -9.4162, Lon: -40.5033}},
	{"Ilhéus", "BA", Coord{Lat: -14.7936, Lon: -39.0463}},
	{"Itabuna", "BA", Coord{Lat: -14.7876, Lon: -39.2781}},
	{"Lauro de Freitas", "BA", Coord{Lat: -12.8978, Lon: -38.3217}},
	{"Jequié", "BA", Coord{Lat: -13.8578, Lon: -40.0836}},
	{"Alagoinhas", "BA", Coord{Lat: -12.1356, Lon: -38.4192}},
	{"Barreiras", "BA", Coord{Lat: -12.1439, Lon: -44.9968}},
	{"Porto Seguro", "BA", Coord{Lat: -16.4435, Lon: -39.0643}},
	{"Curitiba", "PR", Coord{Lat: -25.4284, Lon: -49.2733}},
	{"Londrina", "PR", Coord{Lat: -23.3045, Lon: -51.1696}},
	{"Maringá", "PR", Coord{Lat: -23.4205, Lon: -51.9333}},
	{"Ponta Grossa", "PR", Coord{Lat: -25.0945, Lon: -50.1633}},
	{"Cascavel", "PR", Coord{Lat: -24.9573, Lon: -53.4590}},
	{"São José dos Pinhais", "PR", Coord{Lat: -25.5313, Lon: -49.2031}},
	{"Foz do Iguaçu", "PR", Coord{Lat: -25.5163, Lon: -54.5854}},
	{"Colombo", "PR", Coord{Lat: -25.2917, Lon: -49.2242}},
	{"Guarapuava", "PR", Coord{Lat: -25.3902, Lon: -51.4623}},
	{"Paranaguá", "PR", Coord{Lat: -25.5163, Lon: -48.5225}},
	{"Araucária", "PR", Coord{Lat: -25.5859, Lon: -49.4047}},
	{"Toledo", "PR", Coord{Lat: -24.7246, Lon: -53.7412}},
	{"Porto Alegre", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Caxias do Sul", "RS", Coord{Lat: -29.1678, Lon: -51.1794}},
	{"Pelotas", "RS", Coord{Lat: -31.7654, Lon: -52.3376}},
	{"Canoas", "RS", Coord{Lat: -29.9178, Lon: -51.1839}},
	{"Santa Maria", "RS", Coord{Lat: -29.6868, Lon: -53.8149}},
	{"Gravataí", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Viamão", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Novo Hamburgo", "RS", Coord{Lat: -29.6783, Lon: -51.1309}},
	{"São Leopoldo", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Rio Grande", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Alvorada", "RS", Coord{Lat: -30.0346, Lon: -51.2177}},
	{"Passo Fundo", "RS", Coord{Lat: -28.2620, Lon: -52.4064}},
	{"Florianópolis", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Joinville", "SC", Coord{Lat: -26.3045, Lon: -48.8487}},
	{"Blumenau", "SC", Coord{Lat: -26.9194, Lon: -49.0661}},
	{"São José", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Chapecó", "SC", Coord{Lat: -27.1004, Lon: -52.6152}},
	{"Criciúma", "SC", Coord{Lat: -28.6775, Lon: -49.3697}},
	{"Itajaí", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Jaraguá do Sul", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Lages", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Palhoça", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Balneário Camboriú", "SC", Coord{Lat: -26.9906, Lon: -48.6348}},
	{"Brusque", "SC", Coord{Lat: -27.5954, Lon: -48.5480}},
	{"Recife", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Jaboatão dos Guararapes", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Olinda", "PE", Coord{Lat: -8.0089, Lon: -34.8553}},
	{"Caruaru", "PE", Coord{Lat: -8.2760, Lon: -35.9819}},
	{"Petrolina", "PE", Coord{Lat: -9.3986, Lon: -40.5008}},
	{"Paulista", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Cabo de Santo Agostinho", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Camaragibe", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Garanhuns", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Vitória de Santo Antão", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Igarassu", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Abreu e Lima", "PE", Coord{Lat: -8.0476, Lon: -34.8770}},
	{"Fortaleza", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Caucaia", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Juazeiro do Norte", "CE", Coord{Lat: -7.2131, Lon: -39.3151}},
	{"Maracanaú", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Sobral", "CE", Coord{Lat: -3.6861, Lon: -40.3497}},
	{"Crato", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Itapipoca", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Maranguape", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Iguatu", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Quixadá", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Canindé", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Pacajus", "CE", Coord{Lat: -3.7172, Lon: -38.5433}},
	{"Goiânia", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Aparecida de Goiânia", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Anápolis", "GO", Coord{Lat: -16.3281, Lon: -48.9530}},
	{"Rio Verde", "GO", Coord{Lat: -17.7923, Lon: -50.9192}},
	{"Luziânia", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Águas Lindas de Goiás", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Valparaíso de Goiás", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Trindade", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Formosa", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Novo Gama", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Itumbiara", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Senador Canedo", "GO", Coord{Lat: -16.6869, Lon: -49.2648}},
	{"Vitória", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Vila Velha", "ES", Coord{Lat: -20.3417, Lon: -40.2875}},
	{"Serra", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Cariacica", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Cachoeiro de Itapemirim", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Linhares", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"São Mateus", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Colatina", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Guarapari", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Aracruz", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Viana", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Nova Venécia", "ES", Coord{Lat: -20.3155, Lon: -40.3128}},
	{"Belém", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Ananindeua", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Santarém", "PA", Coord{Lat: -2.4430, Lon: -54.7082}},
	{"Marabá", "PA", Coord{Lat: -5.3686, Lon: -49.1178}},
	{"Castanhal", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Parauapebas", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Itaituba", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Cametá", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Bragança", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Abaetetuba", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Marituba", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"Altamira", "PA", Coord{Lat: -1.4558, Lon: -48.4902}},
	{"São Luís", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Imperatriz", "MA", Coord{Lat: -5.5264, Lon: -47.4919}},
	{"São José de Ribamar", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Timon", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Caxias", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Codó", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Paço do Lumiar", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Açailândia", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Bacabal", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Balsas", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Santa Inês", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Pinheiro", "MA", Coord{Lat: -2.5307, Lon: -44.3068}},
	{"Manaus", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Parintins", "AM", Coord{Lat: -2.6283, Lon: -56.7358}},
	{"Itacoatiara", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Manacapuru", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Coari", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Tefé", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Tabatinga", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Maués", "AM", Coord{Lat: -3.1190, Lon: -60.0217}},
	{"Brasília", "DF", Coord{Lat: -15.8267, Lon: -47.9218}},
	{"Aracaju", "SE", Coord{Lat: -10.9472, Lon: -37.0731}},
	{"Maceió", "AL", Coord{Lat: -9.6658, Lon: -35.7353}},
	{"Teresina", "PI", Coord{Lat: -5.0920, Lon: -42.8038}},
	{"Natal", "RN", Coord{Lat: -5.7945, Lon: -35.2110}},
	{"João Pessoa", "PB", Coord{Lat: -7.1195, Lon: -34.8450}},
	{"Cuiabá", "MT", Coord{Lat: -15.6014, Lon: -56.0979}},
	{"Campo Grande", "MS", Coord{Lat: -20.4697, Lon: -54.6201}},
	{"Porto Velho", "RO", Coord{Lat: -8.7612, Lon: -63.9004}},
	{"Rio Branco", "AC", Coord{Lat: -9.9754, Lon: -67.8249}},
	{"Boa Vista", "RR", Coord{Lat: 2.8235, Lon: -60.6758}},
	{"Macapá", "AP", Coord{Lat: 0.0349, Lon: -51.0694}},
	{"Palmas", "TO", Coord{Lat: -10.2491, Lon: -48.3243}},
}

var citiesByKey = func() map[string]City {
	m := make(map[string]City, len(cities)*2)
	for _, c := range cities {
		m[textfold.Fold(c.Label())] = c
		if _, dup := m[textfold.Fold(c.Name)]; !dup {
			m[textfold.Fold(c.Name)] = c
		}
	}
	return m
}()

// LookupCity resolves "Campinas, SP" or a bare "campinas" to a City,
// ignoring case and accents.
func LookupCity(name string) (City, bool) {
	c, ok := citiesByKey[textfold.Fold(name)]
	return c, ok
}

// SuggestCities returns up to limit cities whose label contains query.
// Queries shorter than two characters yield nothing.
func SuggestCities(query string, limit int) []City {
	q := textfold.Fold(query)
	if len([]rune(q)) < 2 {
		return nil
	}
	if limit <= 0 || limit > MaxCitySuggestions {
		limit = MaxCitySuggestions
	}
	var out []City
	for _, c := range cities {
		if strings.Contains(textfold.Fold(c.Label()), q) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

package advisor

// Tool is one expert topic.
type Tool struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// Category groups expert tools.
type Category struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Tools       []Tool `json:"tools"`
}

// Catalog lists the expert tools offered to the user.
var Catalog = []Category{
	{
		Name:        "Beslenme & Diyet",
		Icon:        "fa-seedling",
		Description: "En sağlıklı tohumlar ve meyve karışımları.",
		Tools: []Tool{
			{"Gıda Güvenliği", "Kuşun yediği her şeyin toksik olup olmadığını kontrol eder."},
			{"Yasaklı Gıdalar", "Avokado, çikolata ve kafein gibi ölümcül gıdaların tam listesi."},
			{"Mama Tarifleri", "Evde yapabileceğiniz yumurta maması ve sebze karışımları."},
			{"Vitamin Dengesi", "Tüy dökümü ve üreme döneminde gerekli takviyeler."},
			{"Su Kalitesi", "İçme suyu temizliği ve suluk hijyeni rehberi."},
			{"Ağırlık Takibi", "Kuşun zayıf mı yoksa aşırı kilolu mu olduğunu anlama."},
		},
	},
	{
		Name:        "Sağlık & İlkyardım",
		Icon:        "fa-stethoscope",
		Description: "Hastalık belirtileri ve acil müdahale.",
		Tools: []Tool{
			{"Dışkı Analizi", "Dışkı rengi ve kıvamına göre sağlık taraması."},
			{"Tüy Dökümü", "Mevsimsel ve stres kaynaklı tüy dökümü farkı."},
			{"Gaga & Tırnak", "Gaga uzaması ve güvenli tırnak kesimi teknikleri."},
			{"Solunum Takibi", "Kuyruk sallama ve hırıltılı nefes analizi."},
			{"Bit & Parazit", "Dış parazit tespiti ve doğal çözüm yolları."},
			{"Göz Sağlığı", "Kızarıklık, şişlik ve akıntı kontrolü."},
		},
	},
	{
		Name:        "Davranış & Eğitim",
		Icon:        "fa-brain",
		Description: "Konuşturma ve ele alıştırma teknikleri.",
		Tools: []Tool{
			{"Ele Alıştırma", "Avucunuza korkmadan gelmesi için 5 adım."},
			{"Konuşma Dersleri", "Kelime tekrarları ve ses tonu stratejileri."},
			{"Isırma Sorunu", "Agresif davranışların kökeni ve çözüm yolları."},
			{"Korku Analizi", "Ani hareketlerden ürken kuşlar için güven terapisi."},
			{"Tuvalet Eğitimi", "Kafes dışında belirli yerlere yapma eğitimi."},
			{"Zeka Oyunları", "Problem çözme yeteneğini geliştiren aktiviteler."},
		},
	},
	{
		Name:        "Yaşam Alanı",
		Icon:        "fa-house",
		Description: "Kafes düzeni ve oda güvenliği.",
		Tools: []Tool{
			{"Kafes Konumu", "Cereyan, güneş ışığı ve gürültü dengesi."},
			{"Tünek Seçimi", "Ayak sağlığı için ahşap ve doğal dal tünekler."},
			{"Oyuncak Güvenliği", "Boyalı ve tehlikeli parça içeren oyuncak tespiti."},
			{"Oda Güvenliği", "Açık pencereler, saksı bitkileri ve mutfak tehlikeleri."},
			{"Aydınlatma", "UV ışığı ihtiyacı ve uyku düzeni için karanlık süresi."},
			{"Hijyen Planı", "Kafes ve ekipman temizliği periyotları."},
		},
	},
	{
		Name:        "Üretim & Yavru",
		Icon:        "fa-egg",
		Description: "Eş seçimi ve yavru bakımı.",
		Tools: []Tool{
			{"Eş Seçimi", "Uyumlu çiftlerin belirlenmesi ve yaş faktörü."},
			{"Yuvalık Hazırlığı", "Doğru yuvalık tipi ve taban malzemesi seçimi."},
			{"Kuluçka Takibi", "Yumurta doluluk kontrolü ve kuluçka süreci."},
			{"Yavru Besleme", "Anne bakımı yetersizse elle besleme teknikleri."},
			{"Cinsiyet Ayrımı", "Cere rengi ve davranışlara göre cinsiyet tespiti."},
			{"Bilezik Takma", "Yavrulara kayıt için bilezik takma zamanı."},
		},
	},
	{
		Name:        "Psikoloji & Sosyal",
		Icon:        "fa-masks-theater",
		Description: "Kuşunuzun ruh dünyasını anlayın.",
		Tools: []Tool{
			{"Yalnızlık Belirtisi", "Kendi tüylerini yolma ve depresyon analizi."},
			{"Kıskançlık", "Yeni bir kuş veya ev halkına karşı tepkiler."},
			{"Mutluluk İşaretleri", "Gaga gıcırdatma ve neşeli şarkılar."},
			{"Stres Kaynakları", "Evdeki gürültü, ani ışık değişimleri ve çözümler."},
			{"Oyun İhtiyacı", "Günlük ne kadar ilgi ve oyun bekler?"},
			{"Uyku Düzeni", "Kuşların neden 10-12 saat karanlığa ihtiyacı var?"},
		},
	},
}

// FindTool looks a tool up by exact name.
func FindTool(name string) (Tool, bool) {
	for _, c := range Catalog {
		for _, t := range c.Tools {
			if t.Name == name {
				return t, true
			}
		}
	}
	return Tool{}, false
}

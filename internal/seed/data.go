package seed

import (
	clientdomain "github.com/smallbiznis/bizadmin/internal/client/domain"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
)

func sampleCompany() companydomain.UpsertRequest {
	vat := companydomain.DefaultVATPercent
	return companydomain.UpsertRequest{
		CompanyName:  "Yohannes Hoveniersbedrijf B.V.",
		Address:      "Hoofdstraat 123\n1234 AB Amsterdam\nNetherlands",
		KvKNumber:    "76543210",
		BTWNumber:    "NL123456789B01",
		IBAN:         "NL91ABNA0417164300",
		Phone:        "+31 20 123 4567",
		Email:        "info@yohanneshoveniers.nl",
		VATDefault:   &vat,
		PaymentTerms: "Betaling binnen 14 dagen na factuurdatum. Vermeld het factuurnummer bij de betaling.",
	}
}

var sampleClients = []clientdomain.CreateClientRequest{
	{
		Name:      "Gemeente Amsterdam",
		Address:   "Amstel 1\n1011 PN Amsterdam\nNetherlands",
		KvKNumber: "34366966",
		BTWNumber: "NL002564440B01",
		Phone:     "+31 20 624 1111",
		Email:     "info@amsterdam.nl",
	},
	{
		Name:      "De Groene Tuin B.V.",
		Address:   "Tuinstraat 45\n1015 PW Amsterdam\nNetherlands",
		KvKNumber: "54321098",
		BTWNumber: "NL854123789B01",
		Phone:     "+31 20 987 6543",
		Email:     "contact@degroenetuin.nl",
	},
	{
		Name:      "Wooncomplex De Eik",
		Address:   "Eikenweg 78\n1092 BB Amsterdam\nNetherlands",
		KvKNumber: "87654321",
		BTWNumber: "NL987654321B01",
		Phone:     "+31 20 345 6789",
		Email:     "beheer@wooncomplexdeeik.nl",
	},
}

// client indexes into sampleClients.
var sampleProjects = []struct {
	client int
	req    projectdomain.CreateProjectRequest
}{
	{0, projectdomain.CreateProjectRequest{
		ProjectNumber: "PRJ-2023-001",
		Title:         "Vondelpark Onderhoud",
		Description:   "Regulier onderhoud van de zuidelijke secties van het Vondelpark, inclusief snoeien, maaien en plantenbedden verzorgen.",
	}},
	{1, projectdomain.CreateProjectRequest{
		ProjectNumber: "PRJ-2023-002",
		Title:         "Aanleg Bedrijfstuin",
		Description:   "Ontwerp en aanleg van een nieuwe bedrijfstuin met duurzame beplanting, waterpartij en zitgedeelte.",
	}},
	{2, projectdomain.CreateProjectRequest{
		ProjectNumber: "PRJ-2023-003",
		Title:         "Renovatie Binnenplaats",
		Description:   "Volledige renovatie van de binnenplaats, inclusief nieuwe bestrating, beplanting en irrigatiesysteem.",
	}},
	{0, projectdomain.CreateProjectRequest{
		ProjectNumber: "PRJ-2023-004",
		Title:         "Seizoensplanting Stadsparken",
		Description:   "Seizoensgebonden beplanting voor diverse stadsparken in Amsterdam-Zuid.",
	}},
}

type sampleItem struct {
	description string
	quantity    float64
	unitPrice   float64
}

var sampleInvoices = []struct {
	client  int
	project int
	number  string
	date    string
	paid    bool
	items   []sampleItem
}{
	{0, 0, "FY2023-01-001", "2023-01-16", true, []sampleItem{
		{"Maandelijks onderhoud Vondelpark - Januari 2023", 80, 43.75},
	}},
	{1, 1, "FY2023-04-002", "2023-04-14", true, []sampleItem{
		{"Ontwerp bedrijfstuin", 1, 1250},
		{"Aanleg bedrijfstuin - Materialen", 1, 3500},
		{"Aanleg bedrijfstuin - Arbeid", 50, 50},
	}},
	{2, 2, "FY2023-05-003", "2023-05-17", false, []sampleItem{
		{"Renovatie binnenplaats - Fase 1 (Verwijderen oude bestrating)", 1, 2500},
		{"Renovatie binnenplaats - Fase 2 (Nieuwe bestrating)", 1, 6000},
		{"Renovatie binnenplaats - Fase 3 (Beplanting)", 1, 4000},
	}},
	{0, 3, "FY2023-06-004", "2023-06-08", false, []sampleItem{
		{"Seizoensplanting stadsparken - Zomerplanten", 1, 3800},
		{"Seizoensplanting stadsparken - Arbeid", 40, 50},
	}},
}

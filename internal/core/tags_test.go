package core

import "testing"

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input  string
		want   ProjectTag
		wantOK bool
	}{
		{"#Asces", TagAsces, true},
		{"#asces", TagAsces, true},
		{"#LABCASA", TagLabCasa, true},
		{"  #personal  ", TagPersonal, true},
		{"#Trabajo", "", false},
		{"Personal", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeTag(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeTag(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractTag(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   ProjectTag
		wantOK bool
	}{
		{name: "tag at end", text: "Gasté 150 en Uber #Personal", want: TagPersonal, wantOK: true},
		{name: "tag mid-sentence", text: "compra #LabCasa de cables", want: TagLabCasa, wantOK: true},
		{name: "case insensitive", text: "pago #ASCES mensual", want: TagAsces, wantOK: true},
		{name: "first of several wins", text: "#Asces y #Personal", want: TagAsces, wantOK: true},
		{name: "unknown tag ignored", text: "gasto #Vacaciones", wantOK: false},
		{name: "no tag", text: "Gasté 150 en Uber", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractTag(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractTag(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		input  string
		want   UpdatableField
		wantOK bool
	}{
		{"amount", FieldAmount, true},
		{"monto", FieldAmount, true},
		{"Precio", FieldAmount, true},
		{"descripción", FieldDescription, true},
		{"concepto", FieldDescription, true},
		{"categoria", FieldCategory, true},
		{"rubro", FieldCategory, true},
		{"fecha", FieldDate, true},
		{"día", FieldDate, true},
		{"estado", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeField(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeField(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

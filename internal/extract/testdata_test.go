package extract

const suBill = `SU ELETRICIDADE, S.A.
Comercializador de ultimo recurso
Fatura FT 2025/123
Periodo de faturacao de 01-08-2025 a 31-08-2025
Potência contratada 6,90 kVA
Potência contratada 30 dias 9,87 €
Energia 210 kWh 32,36 €
Taxas e impostos 4,32 €
Contribuição audiovisual JCAV 2,85
Valor a pagar 58,40 €`

const edpBillWithBases = `EDP Comercial
Quanto tenho a pagar?
25,19 €
Período de faturação: 6 de agosto a 5 de setembro 2024
IVA (4,66 €) 23%
IVA (1,00 €) 23%
IVA (12,00 €) 6%`

const edpBillLines = `EDP Comercial
Quanto tenho a pagar? 30,00 €
Potência 6,90 kVA 30 dias x 0,3291 €/dia 9,87 €
Desconto potência 30 dias -2,71 €
Energia 120 kWh 30 dias 20,00 €
Taxa DGEG 0,07 €
Contribuição Audiovisual 2,85 €`

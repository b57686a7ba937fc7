package mapper

// extraColumns is the allow-list of auxiliary source columns preserved in the
// datos_extra payload. These come straight from the SIDUNEA export layout and
// were never promoted to first-class fields; unknown columns are dropped.
var extraColumns = []string{
	"CODIGO_NAC",
	"DECLARACIO",
	"DOC_EMBARQ",
	"C_BULTO",
	"CODIGO_EMB",
	"TIPO_DUI_A",
	"VERSION_A",
	"GA_EFECT",
	"GA_GARAN",
	"GA_LIBER",
	"GA_SIN_P",
	"ICD_EFECT",
	"ICD_LIBER",
	"ICD_GARAN",
	"ICD_SIN_P",
	"ICE_EFECT",
	"ICE_GARAN",
	"ICE_LIBER",
	"ICE_SIN_P",
	"IEHD_EFECT",
	"IEHD_LIBER",
	"IEHD_SIN_P",
	"IMPZONFRAN",
	"INS_PREVIA",
	"IVA_EFECT",
	"IVA_GARAN",
	"IVA_LIBER",
	"IVA_SIN_P",
	"LEVABANDON",
	"VGA_VALOR",
	"VIC_VALOR",
	"VIH_VALOR",
	"VIV_VALOR",
	"NRO_REGIST",
	"CODIGO_MAR",
	"CODIGO_CLA",
	"CODIGO_TIP",
	"CODIGO_SUB",
	"CILINDRADA",
	"MOTOR",
	"CHASIS",
	"ANIO_FABRI",
	"ANIO_MODEL",
	"CODIGO_TRA",
	"NRO_RUEDAS",
	"NRO_PUERTA",
	"CAPACIDAD_",
	"CODIGO_COM",
	"TRANSMISIO",
	"PATRON_DEC",
	"MANIFIESTO",
	"FECHA_MAN",
	"FECHA_LOC",
	"NRO_VAL",
	"FECHA_VAL",
	"FECHA_PAG",
	"FECHA_CAN",
	"FECHA_VIST",
	"FECHA_LEV",
	"FECHA_SAL",
	"DOC_IMP",
	"NRO_DOC",
	"DIR_PROVEE",
	"REG_MAN",
	"TASA_CAM",
	"NAT_TRANS",
	"TRANS_FRO",
	"TRANS_INT",
	"FLETE",
	"SEG",
	"GASTOS",
	"ITMES",
	"RECIBO",
	"TIPO_DUI_B",
	"VERSION_B",
	"FECHA_ENM",
	"REF_DIM",
	"SID_SUMA",
	"HRS_LOCMA",
	"HRS_VALOC",
	"HRS_PAVAL",
	"HRS_CAPAG",
	"HRS_VISCA",
	"HRS_LEVIS",
	"HRS_SALEV",
	"HRS_SALMAN",
}
